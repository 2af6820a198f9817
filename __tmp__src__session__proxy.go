package session

import (
	"fixgateway/transport"

	"github.com/quickfixgo/quickfix"
)

// Identity is the stamped comp-ID pair for one direction of a session.
type Identity struct {
	SenderCompID string
	TargetCompID string
}

// ReplayMessage is an archived application message being re-emitted by the
// Replayer with PossDupFlag semantics. Passed through
// Proxy.SendApplicationReplay rather than decoded further — application
// message bodies are opaque to the session core.
type ReplayMessage struct {
	MsgType         string
	RawBody         []byte // original body fields, verbatim
	OrigSendingTime string
}

// Proxy is the stateless encoder-wrapper around the transport. Every
// method stamps BeginString/BodyLength/MsgType/comp-IDs/MsgSeqNum/SendingTime
// and computes the checksum before offering the buffer to the transport;
// Session supplies the MsgSeqNum and SendingTime since it alone owns those
// counters, which keeps this package free of a back-pointer to Session.
type Proxy interface {
	SendLogon(id Identity, seqNum int32, sendingTime int64, heartBtIntSec int, resetSeqNumFlag bool) transport.Status
	SendLogout(id Identity, seqNum int32, sendingTime int64, text string) transport.Status
	SendHeartbeat(id Identity, seqNum int32, sendingTime int64, testReqID string) transport.Status
	SendTestRequest(id Identity, seqNum int32, sendingTime int64, testReqID string) transport.Status
	SendResendRequest(id Identity, seqNum int32, sendingTime int64, beginSeqNo, endSeqNo int32) transport.Status
	SendReject(id Identity, seqNum int32, sendingTime int64, refSeqNum int32, refTagID quickfix.Tag, refMsgType string, reason string, text string) transport.Status
	SendSequenceReset(id Identity, seqNum int32, sendingTime int64, newSeqNo int32, gapFill bool, possDup bool) transport.Status
	SendApplicationReplay(id Identity, seqNum int32, sendingTime int64, msg ReplayMessage) transport.Status
	Disconnect(id Identity)
}


