package logging

import "testing"

func TestNewAcceptsKnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if _, err := New(level, "console"); err != nil {
			t.Errorf("New(%q, console): %v", level, err)
		}
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("verbose", "console"); err == nil {
		t.Errorf("expected an error for an unknown log level")
	}
}

func TestNewSupportsJSONEncoding(t *testing.T) {
	if _, err := New("info", "json"); err != nil {
		t.Errorf("New(info, json): %v", err)
	}
}

func TestNoopDoesNotPanicOnUse(t *testing.T) {
	log := Noop()
	log.Infow("discarded", "key", "value")
}


