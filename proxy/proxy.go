// Package proxy is the concrete Proxy used in production: it builds a
// wire.Message per outbound call, hands it to wire.Encoder for header
// stamping and checksum computation, and offers the resulting bytes to a
// transport.Publisher. It mirrors the small per-message-type builder
// functions the FIX client's message builder uses, generalized from
// market-data/order messages to the seven session-level message types.
package proxy

import (
	"strconv"

	"fixgateway/constants"
	"fixgateway/session"
	"fixgateway/transport"
	"fixgateway/wire"

	"github.com/quickfixgo/quickfix"
)

// TransportProxy offers session-level messages to a transport.Publisher on
// a per-session stream named by the session's comp-ID pair.
type TransportProxy struct {
	encoder *wire.Encoder
	pub     transport.Publisher
}

// New creates a TransportProxy that encodes at the given time precision
// and publishes through pub.
func New(encoder *wire.Encoder, pub transport.Publisher) *TransportProxy {
	return &TransportProxy{encoder: encoder, pub: pub}
}

func streamID(id session.Identity) string {
	return id.SenderCompID + "->" + id.TargetCompID
}

func setBody(msg *wire.Message, tag quickfix.Tag, value string) {
	msg.SetBody(tag, value)
}

func setBodyIfNotEmpty(msg *wire.Message, tag quickfix.Tag, value string) {
	if value != "" {
		msg.SetBody(tag, value)
	}
}

func (p *TransportProxy) send(id session.Identity, seqNum int32, sendingTime int64, msg *wire.Message) transport.Status {
	buf := p.encoder.Encode(msg, wire.EncodeParams{
		SenderCompID: id.SenderCompID,
		TargetCompID: id.TargetCompID,
		MsgSeqNum:    seqNum,
		SendingTime:  sendingTime,
	})
	_, status := p.pub.Publish(streamID(id), buf)
	return status
}

func (p *TransportProxy) SendLogon(id session.Identity, seqNum int32, sendingTime int64, heartBtIntSec int, resetSeqNumFlag bool) transport.Status {
	msg := wire.NewMessage(constants.MsgTypeLogon)
	setBody(msg, constants.TagEncryptMethod, constants.EncryptMethodNone)
	setBody(msg, constants.TagHeartBtInt, strconv.Itoa(heartBtIntSec))
	if resetSeqNumFlag {
		setBody(msg, constants.TagResetSeqNumFlag, constants.ResetSeqNumYes)
	}
	return p.send(id, seqNum, sendingTime, msg)
}

func (p *TransportProxy) SendLogout(id session.Identity, seqNum int32, sendingTime int64, text string) transport.Status {
	msg := wire.NewMessage(constants.MsgTypeLogout)
	setBodyIfNotEmpty(msg, constants.TagText, text)
	return p.send(id, seqNum, sendingTime, msg)
}

func (p *TransportProxy) SendHeartbeat(id session.Identity, seqNum int32, sendingTime int64, testReqID string) transport.Status {
	msg := wire.NewMessage(constants.MsgTypeHeartbeat)
	setBodyIfNotEmpty(msg, constants.TagTestReqID, testReqID)
	return p.send(id, seqNum, sendingTime, msg)
}

func (p *TransportProxy) SendTestRequest(id session.Identity, seqNum int32, sendingTime int64, testReqID string) transport.Status {
	msg := wire.NewMessage(constants.MsgTypeTestRequest)
	setBody(msg, constants.TagTestReqID, testReqID)
	return p.send(id, seqNum, sendingTime, msg)
}

func (p *TransportProxy) SendResendRequest(id session.Identity, seqNum int32, sendingTime int64, beginSeqNo, endSeqNo int32) transport.Status {
	msg := wire.NewMessage(constants.MsgTypeResendRequest)
	setBody(msg, constants.TagBeginSeqNo, strconv.Itoa(int(beginSeqNo)))
	setBody(msg, constants.TagEndSeqNo, strconv.Itoa(int(endSeqNo)))
	return p.send(id, seqNum, sendingTime, msg)
}

func (p *TransportProxy) SendReject(id session.Identity, seqNum int32, sendingTime int64, refSeqNum int32, refTagID quickfix.Tag, refMsgType, reason, text string) transport.Status {
	msg := wire.NewMessage(constants.MsgTypeReject)
	setBody(msg, constants.TagRefSeqNum, strconv.Itoa(int(refSeqNum)))
	if refTagID != 0 {
		setBody(msg, constants.TagRefTagID, strconv.Itoa(int(refTagID)))
	}
	setBodyIfNotEmpty(msg, constants.TagRefMsgType, refMsgType)
	setBodyIfNotEmpty(msg, constants.TagSessionRejectReason, reason)
	setBodyIfNotEmpty(msg, constants.TagText, text)
	return p.send(id, seqNum, sendingTime, msg)
}

func (p *TransportProxy) SendSequenceReset(id session.Identity, seqNum int32, sendingTime int64, newSeqNo int32, gapFill, possDup bool) transport.Status {
	msg := wire.NewMessage(constants.MsgTypeSequenceReset)
	if possDup {
		msg.SetHeader(constants.TagPossDupFlag, constants.PossDupYes)
	}
	flag := constants.GapFillNo
	if gapFill {
		flag = constants.GapFillYes
	}
	setBody(msg, constants.TagGapFillFlag, flag)
	setBody(msg, constants.TagNewSeqNo, strconv.Itoa(int(newSeqNo)))
	return p.send(id, seqNum, sendingTime, msg)
}

// SendApplicationReplay re-emits an archived application message with
// PossDupFlag and OrigSendingTime set, its body copied through verbatim —
// the session core never needs to understand application content.
func (p *TransportProxy) SendApplicationReplay(id session.Identity, seqNum int32, sendingTime int64, rm session.ReplayMessage) transport.Status {
	msg := wire.NewMessage(rm.MsgType)
	msg.SetHeader(constants.TagPossDupFlag, constants.PossDupYes)
	if rm.OrigSendingTime != "" {
		msg.SetHeader(constants.TagOrigSendingTime, rm.OrigSendingTime)
	}
	msg.RawBody = rm.RawBody
	return p.send(id, seqNum, sendingTime, msg)
}

func (p *TransportProxy) Disconnect(id session.Identity) {
	// The in-process transport has no persistent connection to tear down;
	// a socket-backed Publisher implementation closes its net.Conn here.
}
