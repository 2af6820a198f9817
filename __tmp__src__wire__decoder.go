package wire

import (
	"strconv"
	"strings"

	"fixgateway/constants"

	"github.com/quickfixgo/quickfix"
)

// Decoded is a parsed inbound message: every tag=value pair in arrival
// order, plus the MsgType for fast dispatch.
type Decoded struct {
	MsgType string
	Fields  []Field
}

// Get returns the first field value for tag, scanning in wire order.
// HOT PATH: called once per header-validated field per inbound message;
// a direct linear scan instead of building a map, since each message only
// needs a handful of field lookups.
func (d *Decoded) Get(tag quickfix.Tag) (string, bool) {
	for _, f := range d.Fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// Decode parses a raw SOH-delimited FIX message into its tag=value fields.
// It does not validate dictionary structure — that is out of scope for a
// session-level gateway; it only needs to recover tag numbers and values
// for header validation and sequencing.
func Decode(raw []byte) (*Decoded, error) {
	s := string(raw)
	fields := make([]Field, 0, strings.Count(s, string(constants.SOH))+1)

	var msgType string
	start := 0
	for start < len(s) {
		sohIdx := strings.IndexByte(s[start:], constants.SOH)
		var segment string
		if sohIdx < 0 {
			segment = s[start:]
			start = len(s)
		} else {
			segment = s[start : start+sohIdx]
			start += sohIdx + 1
		}
		if segment == "" {
			continue
		}
		eq := strings.IndexByte(segment, '=')
		if eq < 0 {
			return nil, &DecodeError{Reason: "malformed field: missing '='", Segment: segment}
		}
		tagNum, err := strconv.Atoi(segment[:eq])
		if err != nil {
			return nil, &DecodeError{Reason: "non-numeric tag", Segment: segment}
		}
		tag := quickfix.Tag(tagNum)
		value := segment[eq+1:]
		if tag == constants.TagBodyLength {
			if _, err := strconv.Atoi(value); err != nil {
				return nil, &DecodeError{Reason: "non-numeric BodyLength", Segment: segment}
			}
		}
		fields = append(fields, Field{Tag: tag, Value: value})
		if tag == constants.TagMsgType {
			msgType = value
		}
	}

	return &Decoded{MsgType: msgType, Fields: fields}, nil
}

// DecodeError reports a malformed inbound message. The Framer hands it to
// Session.HandleDecodeFailure, which logs out and disconnects; no Reject
// is sent, even when the offending tag is known.
type DecodeError struct {
	Reason  string
	Segment string
}

func (e *DecodeError) Error() string {
	return e.Reason + ": " + e.Segment
}


