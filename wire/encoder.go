package wire

import (
	"strconv"
	"strings"
	"time"

	"fixgateway/constants"

	"github.com/quickfixgo/quickfix"
)

// Encoder stamps FIX session headers and computes the wire checksum. It is
// stateless and safe for concurrent use — the Session owns the mutable
// counters (MsgSeqNum) and passes them in per call.
type Encoder struct {
	Precision constants.FixTimePrecision
}

func NewEncoder(precision constants.FixTimePrecision) *Encoder {
	return &Encoder{Precision: precision}
}

// FormatSendingTime renders an epoch-nanosecond timestamp at the encoder's
// configured fraction width.
func (e *Encoder) FormatSendingTime(epochNanos int64) string {
	t := time.Unix(0, epochNanos).UTC()
	switch e.Precision {
	case constants.PrecisionMillis:
		return t.Format("20060102-15:04:05.000")
	case constants.PrecisionMicros:
		return t.Format("20060102-15:04:05.000000")
	case constants.PrecisionNanos:
		return t.Format("20060102-15:04:05.000000000")
	default:
		return t.Format("20060102-15:04:05")
	}
}

// EncodeParams carries the per-message stamped fields the Session fills in
// before handing a Message to the Encoder.
type EncodeParams struct {
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int32
	SendingTime  int64 // epoch nanoseconds
}

// Encode renders msg to its wire bytes: BeginString, BodyLength, MsgType,
// SenderCompID, TargetCompID, MsgSeqNum, SendingTime, any additional header
// fields the caller set, the body, and a trailing checksum. Uses
// strings.Builder and strconv rather than fmt.Sprintf on this hot path.
func (e *Encoder) Encode(msg *Message, p EncodeParams) []byte {
	var body strings.Builder

	writeField(&body, constants.TagMsgType, msg.MsgType)
	writeField(&body, constants.TagSenderCompId, p.SenderCompID)
	writeField(&body, constants.TagTargetCompId, p.TargetCompID)
	writeField(&body, constants.TagMsgSeqNum, strconv.Itoa(int(p.MsgSeqNum)))
	writeField(&body, constants.TagSendingTime, e.FormatSendingTime(p.SendingTime))
	for _, f := range msg.Header {
		writeField(&body, f.Tag, f.Value)
	}
	for _, f := range msg.Body {
		writeField(&body, f.Tag, f.Value)
	}
	if len(msg.RawBody) > 0 {
		body.Write(msg.RawBody)
	}
	for _, f := range msg.Trailer {
		writeField(&body, f.Tag, f.Value)
	}

	bodyStr := body.String()

	var out strings.Builder
	out.Grow(len(bodyStr) + 32)
	writeField(&out, constants.TagBeginString, constants.FixBeginString)
	writeField(&out, constants.TagBodyLength, strconv.Itoa(len(bodyStr)))
	out.WriteString(bodyStr)

	sum := checksum(out.String())
	writeField(&out, constants.TagCheckSum, fixedWidth3(sum))

	return []byte(out.String())
}

func writeField(b *strings.Builder, tag quickfix.Tag, value string) {
	b.WriteString(strconv.Itoa(int(tag)))
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte(constants.SOH)
}

// checksum sums the bytes of s modulo 256, per the canonical FIX algorithm.
func checksum(s string) int {
	var sum int
	for i := 0; i < len(s); i++ {
		sum += int(s[i])
	}
	return sum % 256
}

func fixedWidth3(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}
