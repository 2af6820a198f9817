// Package control exposes a running engine.Engine to the operator
// console over plain JSON-over-HTTP: list session state, force a
// logout, or issue a manual ResendRequest. Mirrors metrics.Registry's
// shape -- a constructed type with a Handler() -- rather than a
// package-level mux, so a process embedding more than one engine (tests,
// mainly) doesn't collide on http.DefaultServeMux.
package control

import (
	"encoding/json"
	"net/http"

	"fixgateway/session"
)

// Engine is the subset of *engine.Engine the console needs. Declared
// here, not imported from the engine package, so control has no
// compile-time dependency on engine's other collaborators (archive,
// seqindex, transport) -- it only ever touches session state and the
// two operator actions.
type Engine interface {
	ListSessions() []SessionSummary
	RequestResend(sessionID uint64, begin, end int32) bool
	ForceLogout(sessionID uint64) bool
}

// SessionSummary mirrors engine.SessionSummary; duplicated rather than
// imported so control's JSON wire shape doesn't change the moment
// engine's internal summary struct grows an unrelated field.
type SessionSummary struct {
	SessionID         uint64
	State             session.State
	LastSentMsgSeqNum int32
	ExpectedSeqNo     int32
}

// Server wraps an Engine with the console's HTTP surface.
type Server struct {
	eng Engine
}

// New builds a Server over eng.
func New(eng Engine) *Server {
	return &Server{eng: eng}
}

// Handler returns the mux the entrypoint mounts under its control
// address.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.handleSessions)
	mux.HandleFunc("/resend", s.handleResend)
	mux.HandleFunc("/logout", s.handleLogout)
	return mux
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.eng.ListSessions())
}

type resendRequest struct {
	SessionID uint64 `json:"session_id"`
	Begin     int32  `json:"begin"`
	End       int32  `json:"end"`
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if !s.eng.RequestResend(req.SessionID, req.Begin, req.End) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type logoutRequest struct {
	SessionID uint64 `json:"session_id"`
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req logoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if !s.eng.ForceLogout(req.SessionID) {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
