package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	m := NewManual(1000)
	if m.EpochNanos() != 1000 || m.MonotonicNanos() != 1000 {
		t.Fatalf("expected initial readings of 1000")
	}

	m.Advance(30 * time.Second)

	want := int64(1000 + 30*time.Second)
	if m.EpochNanos() != want {
		t.Errorf("EpochNanos: got %d, want %d", m.EpochNanos(), want)
	}
	if m.MonotonicNanos() != want {
		t.Errorf("MonotonicNanos: got %d, want %d", m.MonotonicNanos(), want)
	}
}

func TestSystemClockMoves(t *testing.T) {
	s := NewSystem()
	a := s.MonotonicNanos()
	time.Sleep(time.Millisecond)
	b := s.MonotonicNanos()
	if b <= a {
		t.Errorf("expected monotonic clock to advance, got a=%d b=%d", a, b)
	}
}
