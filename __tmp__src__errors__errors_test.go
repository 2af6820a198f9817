package errors

import (
	"errors"
	"testing"
)

func TestKindStringCoversEveryKind(t *testing.T) {
	cases := map[Kind]string{
		ProtocolViolation:  "protocol_violation",
		BackPressure:       "back_pressure",
		DecoderFailure:     "decoder_failure",
		IOFailure:          "io_failure",
		PersistenceFailure: "persistence_failure",
		ProgrammerError:    "programmer_error",
		Kind(99):           "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestSessionErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := New(IOFailure, 7, cause)

	if got, want := err.Error(), "session 7: io_failure: connection reset"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to unwrap to cause")
	}
}

func TestNoopDiscardsWithoutPanicking(t *testing.T) {
	Noop(New(ProgrammerError, 1, errors.New("boom")))
}


