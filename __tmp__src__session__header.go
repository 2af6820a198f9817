package session

import (
	"strconv"
	"time"

	"fixgateway/constants"
	"fixgateway/wire"
)

var sendingTimeLayouts = []string{
	"20060102-15:04:05.000000000",
	"20060102-15:04:05.000000",
	"20060102-15:04:05.000",
	"20060102-15:04:05",
}

func parseSendingTime(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range sendingTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// validateHeader is applied to every inbound message before the
// sequence-number rule, and on failure sends a Reject plus Logout and
// disconnects without advancing expectedSeqNo.
func (s *Session) validateHeader(msg *wire.Decoded, seqNum int32) bool {
	peerSender, _ := msg.Get(constants.TagSenderCompId)
	if peerSender != s.cfg.TargetCompID {
		s.sendReject(seqNum, constants.TagSenderCompId, msg.MsgType, constants.SessionRejectReasonCompIDProblem, "SenderCompID problem")
		s.fatalWithLogout("CompID problem")
		return false
	}

	peerTarget, _ := msg.Get(constants.TagTargetCompId)
	if peerTarget != s.cfg.SenderCompID {
		s.sendReject(seqNum, constants.TagTargetCompId, msg.MsgType, constants.SessionRejectReasonCompIDProblem, "TargetCompID problem")
		s.fatalWithLogout("CompID problem")
		return false
	}

	sendingTime, _ := msg.Get(constants.TagSendingTime)
	if _, err := parseSendingTime(sendingTime); err != nil {
		s.reportViolation(err)
		s.sendReject(seqNum, constants.TagSendingTime, msg.MsgType, constants.SessionRejectReasonSendingTimeAccuracy, "SendingTime problem")
		s.fatalWithLogout("SendingTime problem")
		return false
	}

	return true
}

func parseSeqNum(msg *wire.Decoded) int32 {
	raw, _ := msg.Get(constants.TagMsgSeqNum)
	n, _ := strconv.Atoi(raw)
	return int32(n)
}

func isPossDup(msg *wire.Decoded) bool {
	v, _ := msg.Get(constants.TagPossDupFlag)
	return v == constants.PossDupYes
}


