// Package session implements the FIX session finite-state machine:
// logon/logout negotiation, header validation, the sequence-number rule,
// SequenceReset handling, heartbeat/timeout, and the session state
// transitions. It owns the Session's counters exclusively from the
// event-loop thread that calls it — nothing here is safe for concurrent
// calls from two goroutines at once, by design.
package session

import (
	"fixgateway/clock"
	"fixgateway/constants"
	"fixgateway/errors"
	"fixgateway/transport"

	"github.com/quickfixgo/quickfix"
)

// ResendHandler services an accepted ResendRequest by delegating to the
// Replayer. Kept as an interface, not a direct dependency on the replayer
// package, to avoid a session<->replayer import cycle — the two talk
// through this callback rather than direct back-pointers.
type ResendHandler interface {
	HandleResendRequest(sess *Session, beginSeqNo, endSeqNo int32)
}

// Config is the per-session configuration supplied at construction.
type Config struct {
	SessionID                 uint64
	SenderCompID              string
	TargetCompID              string
	HeartbeatIntervalSec      int
	SequenceNumbersPersistent bool
}

// Session is one connection's FIX state.
type Session struct {
	cfg Config

	state State

	expectedSeqNo         int32
	lastSentMsgSeqNum     int32
	lastReceivedMsgSeqNum int32
	awaitingResendTrigger int32 // 0 when not awaiting a resend

	lastSentTime     int64 // monotonic ns
	lastReceivedTime int64 // monotonic ns

	clock   clock.Clock
	proxy   Proxy
	resends ResendHandler
	onErr   errors.Handler

	// pendingRetry holds a send that returned BackPressure, so poll can
	// retry it without re-deriving the arguments.
	pendingRetry *pendingSend
}

// pendingSend is a retryable outbound attempt: the MsgSeqNum it was
// stamped with, and the closure that offers it again: each call re-encodes
// the message with the same MsgSeqNum and a fresh SendingTime.
type pendingSend struct {
	seq int32
	op  func() transport.Status
}

// New creates a Session in CONNECTING state.
func New(cfg Config, clk clock.Clock, proxy Proxy, resends ResendHandler, onErr errors.Handler) *Session {
	if onErr == nil {
		onErr = errors.Noop
	}
	return &Session{
		cfg:           cfg,
		state:         Connecting,
		expectedSeqNo: 1,
		clock:         clk,
		proxy:         proxy,
		resends:       resends,
		onErr:         onErr,
	}
}

func (s *Session) SessionID() uint64   { return s.cfg.SessionID }
func (s *Session) State() State        { return s.state }
func (s *Session) ExpectedSeqNo() int32 { return s.expectedSeqNo }
func (s *Session) LastSentMsgSeqNum() int32 { return s.lastSentMsgSeqNum }
func (s *Session) LastReceivedMsgSeqNum() int32 { return s.lastReceivedMsgSeqNum }

// RestoreOutboundState seeds the recovered outbound counter from the
// durable sequence-number index at startup, before any message is sent
// on this connection.
func (s *Session) RestoreOutboundState(lastSentMsgSeqNum int32) {
	s.lastSentMsgSeqNum = lastSentMsgSeqNum
}

// RestoreInboundState seeds the recovered inbound counters from the
// durable sequence-number index at startup.
func (s *Session) RestoreInboundState(lastReceivedMsgSeqNum int32) {
	s.lastReceivedMsgSeqNum = lastReceivedMsgSeqNum
	s.expectedSeqNo = lastReceivedMsgSeqNum + 1
}

func (s *Session) identity() Identity {
	return Identity{SenderCompID: s.cfg.SenderCompID, TargetCompID: s.cfg.TargetCompID}
}

func (s *Session) touchReceived() {
	s.lastReceivedTime = s.clock.MonotonicNanos()
}

// attempt runs op, which must call exactly one Proxy.Send* with seqNum.
// On OK it commits lastSentMsgSeqNum/lastSentTime; on BackPressure it
// stashes the retry for poll; on Disconnected it transitions terminal.
func (s *Session) attempt(seqNum int32, op func() transport.Status) {
	status := op()
	switch status {
	case transport.OK:
		if seqNum > s.lastSentMsgSeqNum {
			s.lastSentMsgSeqNum = seqNum
		}
		s.lastSentTime = s.clock.MonotonicNanos()
		s.pendingRetry = nil
	case transport.BackPressure:
		s.pendingRetry = &pendingSend{seq: seqNum, op: op}
		s.onErr(errors.New(errors.BackPressure, s.cfg.SessionID, nil))
	case transport.Disconnected:
		s.state = Disconnected
	}
}

// retryPending re-attempts a stashed BackPressure send, if any, returning
// whether a retry was attempted.
func (s *Session) retryPending() bool {
	if s.pendingRetry == nil {
		return false
	}
	p := s.pendingRetry
	s.attempt(p.seq, p.op)
	return true
}

func (s *Session) nextSeq() int32 { return s.lastSentMsgSeqNum + 1 }

// --- Outbound session-message helpers ---

func (s *Session) sendLogon(resetSeqNumFlag bool) {
	seq := s.nextSeq()
	s.attempt(seq, func() transport.Status {
		return s.proxy.SendLogon(s.identity(), seq, s.clock.EpochNanos(), s.cfg.HeartbeatIntervalSec, resetSeqNumFlag)
	})
	s.state = SentLogon
}

func (s *Session) sendLogoutText(text string) {
	seq := s.nextSeq()
	s.attempt(seq, func() transport.Status {
		return s.proxy.SendLogout(s.identity(), seq, s.clock.EpochNanos(), text)
	})
}

func (s *Session) sendHeartbeat(testReqID string) {
	seq := s.nextSeq()
	s.attempt(seq, func() transport.Status {
		return s.proxy.SendHeartbeat(s.identity(), seq, s.clock.EpochNanos(), testReqID)
	})
}

// RequestResend sends a ResendRequest for [begin, end] against the peer.
// Exported for the operator console: an operator who suspects this side
// missed inbound messages can trigger the same request the FSM issues
// itself on a detected gap.
func (s *Session) RequestResend(begin, end int32) {
	s.sendResendRequest(begin, end)
}

func (s *Session) sendResendRequest(begin, end int32) {
	seq := s.nextSeq()
	s.attempt(seq, func() transport.Status {
		return s.proxy.SendResendRequest(s.identity(), seq, s.clock.EpochNanos(), begin, end)
	})
}

func (s *Session) sendReject(refSeqNum int32, refTagID quickfix.Tag, refMsgType, reason, text string) {
	seq := s.nextSeq()
	s.attempt(seq, func() transport.Status {
		return s.proxy.SendReject(s.identity(), seq, s.clock.EpochNanos(), refSeqNum, refTagID, refMsgType, reason, text)
	})
}

func (s *Session) sendSequenceReset(newSeqNo int32, gapFill, possDup bool) {
	seq := s.nextSeq()
	s.attempt(seq, func() transport.Status {
		return s.proxy.SendSequenceReset(s.identity(), seq, s.clock.EpochNanos(), newSeqNo, gapFill, possDup)
	})
}

// --- Replayer-facing outbound calls ---
//
// These stamp a caller-supplied MsgSeqNum rather than the session's own
// nextSeq() counter, since a replay re-plays historical positions. They
// go straight to Proxy without touching lastSentMsgSeqNum or the retry
// state that attempt() manages: the Replayer owns its own resumable
// cursor and must not have a replayed send silently reflected into the
// session's live outbound sequence.

// EmitGapFill sends a SequenceReset(GapFillFlag=Y, PossDupFlag=Y) at the
// historical position gapStart, advancing the peer past skipped
// session-level messages up to (not including) newSeqNo.
func (s *Session) EmitGapFill(gapStart, newSeqNo int32) transport.Status {
	return s.proxy.SendSequenceReset(s.identity(), gapStart, s.clock.EpochNanos(), newSeqNo, true, true)
}

// EmitApplicationReplay re-emits an archived application message at its
// original MsgSeqNum with PossDupFlag semantics.
func (s *Session) EmitApplicationReplay(seqNum int32, msg ReplayMessage) transport.Status {
	return s.proxy.SendApplicationReplay(s.identity(), seqNum, s.clock.EpochNanos(), msg)
}

// EmitTrailingReset closes a resend whose requested range ran past the
// last message ever sent: it consumes a fresh outbound MsgSeqNum, like
// any other admin message, advancing the peer's expectation to newSeqNo.
func (s *Session) EmitTrailingReset(newSeqNo int32) transport.Status {
	seq := s.nextSeq()
	status := s.proxy.SendSequenceReset(s.identity(), seq, s.clock.EpochNanos(), newSeqNo, true, false)
	switch status {
	case transport.OK:
		s.lastSentMsgSeqNum = seq
		s.lastSentTime = s.clock.MonotonicNanos()
	case transport.Disconnected:
		s.state = Disconnected
	}
	return status
}

// disconnectNow tears the session down immediately: no more sends are
// attempted, the transport is told to drop the connection, but persistent
// counters are left untouched.
func (s *Session) disconnectNow() {
	s.proxy.Disconnect(s.identity())
	s.state = Disconnected
	s.pendingRetry = nil
}

// fatalWithLogout sends the given session-level error response then
// disconnects.
func (s *Session) fatalWithLogout(text string) {
	s.sendLogoutText(text)
	s.disconnectNow()
}

func (s *Session) reportViolation(cause error) {
	s.onErr(errors.New(errors.ProtocolViolation, s.cfg.SessionID, cause))
}


