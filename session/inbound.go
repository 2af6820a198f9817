package session

import (
	"fmt"
	"strconv"
	"time"

	"fixgateway/constants"
	"fixgateway/wire"

	"github.com/quickfixgo/quickfix"
)

// HandleInbound is the Framer's single entry point for decoded inbound
// bytes: it applies header validation then dispatches to the
// message-type-specific handler, which applies the sequence-number rule
// appropriate to that type.
func (s *Session) HandleInbound(msg *wire.Decoded) {
	if s.state.Terminal() {
		return
	}

	seqNum := parseSeqNum(msg)
	if !s.validateHeader(msg, seqNum) {
		return
	}
	possDup := isPossDup(msg)

	switch msg.MsgType {
	case constants.MsgTypeLogon:
		heartBtInt := 30
		if v, ok := msg.Get(constants.TagHeartBtInt); ok {
			if n, err := strconv.Atoi(v); err == nil {
				heartBtInt = n
			}
		}
		resetFlag := false
		if v, ok := msg.Get(constants.TagResetSeqNumFlag); ok {
			resetFlag = v == constants.ResetSeqNumYes
		}
		s.OnLogon(seqNum, heartBtInt, resetFlag)

	case constants.MsgTypeLogout:
		s.OnLogout(seqNum)

	case constants.MsgTypeTestRequest:
		if s.onMessage(seqNum, possDup) {
			testReqID, _ := msg.Get(constants.TagTestReqID)
			s.OnTestRequest(testReqID)
		}

	case constants.MsgTypeResendRequest:
		if s.onMessage(seqNum, possDup) {
			begin := parseInt32(msg, constants.TagBeginSeqNo)
			end := parseInt32(msg, constants.TagEndSeqNo)
			s.OnResendRequest(seqNum, begin, end)
		}

	case constants.MsgTypeSequenceReset:
		newSeqNo := parseInt32(msg, constants.TagNewSeqNo)
		gapFill := false
		if v, ok := msg.Get(constants.TagGapFillFlag); ok {
			gapFill = v == constants.GapFillYes
		}
		s.OnSequenceReset(seqNum, newSeqNo, gapFill, possDup)

	default:
		s.onMessage(seqNum, possDup)
	}
}

func parseInt32(msg *wire.Decoded, tag quickfix.Tag) int32 {
	v, ok := msg.Get(tag)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return int32(n)
}

// OnLogon handles an inbound Logon, applying the ResetSeqNumFlag rule and
// the CONNECTING/SENT_LOGON transitions.
func (s *Session) OnLogon(seqNum int32, heartbeatIntervalSec int, resetSeqNumFlag bool) {
	s.touchReceived()
	// A configured local interval always wins; the peer's proposed
	// HeartBtInt is only adopted when this side never set one.
	if s.cfg.HeartbeatIntervalSec == 0 {
		s.cfg.HeartbeatIntervalSec = heartbeatIntervalSec
	}

	if resetSeqNumFlag {
		s.expectedSeqNo = 2
		s.lastSentMsgSeqNum = 1
		s.lastReceivedMsgSeqNum = seqNum
	} else if !s.onMessage(seqNum, false) {
		return
	}

	switch s.state {
	case Connecting:
		s.sendLogon(resetSeqNumFlag)
		s.markActive()
	case SentLogon:
		s.markActive()
	default:
		if s.state != Disconnected {
			s.markActive()
		}
	}
}

func (s *Session) markActive() {
	s.state = Active
	now := s.clock.MonotonicNanos()
	if s.lastSentTime == 0 {
		s.lastSentTime = now
	}
	if s.lastReceivedTime == 0 {
		s.lastReceivedTime = now
	}
}

// StartLogon sends an outbound Logon (initiator side).
func (s *Session) StartLogon(resetSeqNumFlag bool) {
	if resetSeqNumFlag {
		s.expectedSeqNo = 2
		s.lastSentMsgSeqNum = 0
	}
	s.sendLogon(resetSeqNumFlag)
}

// HandleDecodeFailure reports a raw inbound fragment the wire decoder
// could not parse: it cannot be localized to a tag, so the session logs
// out and disconnects rather than trying to Reject a message it never
// successfully read.
func (s *Session) HandleDecodeFailure(reason string) {
	if s.state.Terminal() {
		return
	}
	s.fatalWithLogout("malformed message: " + reason)
}

// OnLogout handles an inbound Logout: echo, then disconnect.
func (s *Session) OnLogout(seqNum int32) {
	s.touchReceived()
	s.lastReceivedMsgSeqNum = seqNum
	s.sendLogoutText("")
	s.disconnectNow()
}

// StartLogout begins an operator/application-initiated logout.
func (s *Session) StartLogout() {
	s.sendLogoutText("")
	s.state = SentLogout
}

// OnMessage applies the generic sequence-number rule to any application
// or session message. It returns whether the message was accepted for
// further (type-specific) processing.
func (s *Session) OnMessage(seqNum int32, possDup bool) bool {
	return s.onMessage(seqNum, possDup)
}

func (s *Session) onMessage(seqNum int32, possDup bool) bool {
	s.touchReceived()
	s.lastReceivedMsgSeqNum = seqNum
	expected := s.expectedSeqNo

	if s.state == AwaitingResend && !possDup {
		// Buffered: its content is ignored until resend completes, but its
		// arrival (touchReceived above) satisfies the heartbeat timeout.
		return false
	}

	switch {
	case seqNum == expected:
		s.expectedSeqNo = seqNum + 1
		if s.state == AwaitingResend && seqNum >= s.awaitingResendTrigger {
			s.state = Active
			s.awaitingResendTrigger = 0
		}
		return true
	case seqNum > expected:
		if s.state != AwaitingResend {
			s.state = AwaitingResend
			s.awaitingResendTrigger = seqNum
			s.sendResendRequest(expected, 0)
		}
		return false
	default:
		if possDup {
			return false
		}
		s.fatalWithLogout("MsgSeqNum too low")
		return false
	}
}

// OnTestRequest replies with a Heartbeat echoing the TestReqID.
func (s *Session) OnTestRequest(testReqID string) {
	s.sendHeartbeat(testReqID)
}

// OnResendRequest validates the requested range and delegates to the
// configured ResendHandler (the Replayer).
func (s *Session) OnResendRequest(seqNum int32, beginSeqNo, endSeqNo int32) {
	if beginSeqNo < 1 || (endSeqNo != 0 && endSeqNo < beginSeqNo) {
		s.sendReject(seqNum, constants.TagBeginSeqNo, constants.MsgTypeResendRequest, constants.SessionRejectReasonValueIsIncorrect, "invalid ResendRequest range")
		return
	}
	if beginSeqNo > s.lastSentMsgSeqNum {
		s.sendReject(seqNum, constants.TagBeginSeqNo, constants.MsgTypeResendRequest, constants.SessionRejectReasonValueIsIncorrect, "begin exceeds last sent")
		return
	}
	if s.resends != nil {
		s.resends.HandleResendRequest(s, beginSeqNo, endSeqNo)
	}
}

// OnSequenceReset applies GapFill and Reset mode semantics to an inbound
// SequenceReset.
func (s *Session) OnSequenceReset(seqNum, newSeqNo int32, gapFill, possDup bool) {
	s.touchReceived()
	expected := s.expectedSeqNo

	if gapFill {
		switch {
		case seqNum == expected:
			// treated as normal sequence below
		case seqNum < expected && possDup:
			return
		case seqNum > expected:
			if s.state != AwaitingResend {
				s.state = AwaitingResend
				s.awaitingResendTrigger = seqNum
				s.sendResendRequest(expected, 0)
			}
			return
		default:
			s.reportViolation(fmt.Errorf("sequence reset seq %d < expected %d without PossDup", seqNum, expected))
			s.disconnectNow()
			return
		}

		if newSeqNo < seqNum {
			// A gap-fill that doesn't advance past its own MsgSeqNum can
			// never be satisfied, so treat it as a protocol violation.
			s.reportViolation(fmt.Errorf("gap fill newSeqNo %d < msgSeqNum %d", newSeqNo, seqNum))
			s.disconnectNow()
			return
		}

		s.expectedSeqNo = newSeqNo
		if s.state == AwaitingResend && newSeqNo-1 >= s.awaitingResendTrigger {
			s.state = Active
			s.awaitingResendTrigger = 0
		}
		return
	}

	// Reset mode (GapFillFlag=N). newSeqNo == expected is an unnecessary
	// but harmless reset -- accept it as a no-op rather than rejecting.
	if newSeqNo < expected {
		s.sendReject(newSeqNo, constants.TagNewSeqNo, constants.MsgTypeSequenceReset, constants.SessionRejectReasonValueIsIncorrect, "")
		return
	}
	s.expectedSeqNo = newSeqNo
	if s.state == AwaitingResend {
		s.state = Active
		s.awaitingResendTrigger = 0
	}
}

// Poll drives timers and retries pending outbound work. nowNs must be the
// same monotonic clock the Session was constructed with. Returns whether
// any work was performed.
func (s *Session) Poll(nowNs int64) bool {
	if s.state.Terminal() {
		return false
	}

	workDone := false
	if s.retryPending() {
		return true
	}

	switch s.state {
	case Active, AwaitingResend, SentLogon:
		hbIntervalNs := int64(s.cfg.HeartbeatIntervalSec) * int64(time.Second)
		if hbIntervalNs <= 0 {
			return workDone
		}
		if nowNs-s.lastSentTime >= hbIntervalNs {
			s.sendHeartbeat("")
			workDone = true
		}
		if s.lastReceivedTime != 0 && nowNs-s.lastReceivedTime >= 2*hbIntervalNs {
			// Deliberately skips the intermediate TestRequest step and
			// disconnects directly once the peer has gone silent for two
			// heartbeat intervals.
			s.disconnectNow()
			workDone = true
		}
	}
	return workDone
}
