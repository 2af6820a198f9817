// Package wire implements FIX tag-value encoding and decoding: header
// stamping, checksum/body-length computation, SendingTime formatting, and
// inbound field scanning. It treats the message as an ordered list of
// tag=value pairs rather than delegating to a dictionary-driven codec,
// since the gateway itself owns checksum and header arithmetic — see
// DESIGN.md.
package wire

import "github.com/quickfixgo/quickfix"

// Field is a single decoded or to-be-encoded tag=value pair.
type Field struct {
	Tag   quickfix.Tag
	Value string
}

// Message is a flat, ordered FIX message: header fields (excluding
// BeginString/BodyLength/MsgType/CheckSum, which the Encoder stamps),
// body fields in caller-supplied order, and any trailer fields besides
// CheckSum. RawBody, when non-nil, is written verbatim after Body's
// fields instead of each being encoded — used by replay, which re-emits
// an archived message's original tag=value bytes without re-parsing them.
type Message struct {
	MsgType string
	Header  []Field
	Body    []Field
	RawBody []byte
	Trailer []Field
}

// NewMessage starts a Message of the given MsgType.
func NewMessage(msgType string) *Message {
	return &Message{MsgType: msgType}
}

// SetHeader appends a header field.
func (m *Message) SetHeader(tag quickfix.Tag, value string) *Message {
	m.Header = append(m.Header, Field{tag, value})
	return m
}

// SetBody appends a body field.
func (m *Message) SetBody(tag quickfix.Tag, value string) *Message {
	m.Body = append(m.Body, Field{tag, value})
	return m
}

// Get returns the first matching field value from header then body, in
// that order, and whether it was found.
func (m *Message) Get(tag quickfix.Tag) (string, bool) {
	for _, f := range m.Header {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	for _, f := range m.Body {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}


