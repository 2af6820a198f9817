package control

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fixgateway/session"
)

type fakeEngine struct {
	summaries    []SessionSummary
	resendCalls  [][3]int64
	logoutCalls  []uint64
	resendResult bool
	logoutResult bool
}

func (f *fakeEngine) ListSessions() []SessionSummary { return f.summaries }

func (f *fakeEngine) RequestResend(sessionID uint64, begin, end int32) bool {
	f.resendCalls = append(f.resendCalls, [3]int64{int64(sessionID), int64(begin), int64(end)})
	return f.resendResult
}

func (f *fakeEngine) ForceLogout(sessionID uint64) bool {
	f.logoutCalls = append(f.logoutCalls, sessionID)
	return f.logoutResult
}

func TestHandleSessionsReturnsJSON(t *testing.T) {
	fe := &fakeEngine{summaries: []SessionSummary{{SessionID: 1, State: session.Active, LastSentMsgSeqNum: 5, ExpectedSeqNo: 6}}}
	s := New(fe)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []SessionSummary
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].SessionID != 1 || out[0].State != session.Active {
		t.Errorf("unexpected sessions payload: %+v", out)
	}
}

func TestHandleResendDispatchesAndReportsNotFound(t *testing.T) {
	fe := &fakeEngine{resendResult: true}
	s := New(fe)

	req := httptest.NewRequest(http.MethodPost, "/resend", strings.NewReader(`{"session_id":1,"begin":2,"end":5}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(fe.resendCalls) != 1 || fe.resendCalls[0] != [3]int64{1, 2, 5} {
		t.Errorf("expected RequestResend(1, 2, 5), got %+v", fe.resendCalls)
	}

	fe.resendResult = false
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, httptest.NewRequest(http.MethodPost, "/resend", strings.NewReader(`{"session_id":99,"begin":1,"end":2}`)))
	if rec2.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown session, got %d", rec2.Code)
	}
}

func TestHandleLogoutRejectsWrongMethod(t *testing.T) {
	fe := &fakeEngine{}
	s := New(fe)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
