package main

import "testing"

func TestParseSessionRange(t *testing.T) {
	sessionID, begin, end, err := parseSessionRange([]string{"resend", "1", "4", "9"})
	if err != nil {
		t.Fatalf("parseSessionRange: %v", err)
	}
	if sessionID != 1 || begin != 4 || end != 9 {
		t.Errorf("got sessionID=%d begin=%d end=%d", sessionID, begin, end)
	}
}

func TestParseSessionRangeRejectsNonNumeric(t *testing.T) {
	if _, _, _, err := parseSessionRange([]string{"resend", "abc", "4", "9"}); err == nil {
		t.Errorf("expected an error for a non-numeric sessionId")
	}
}

func TestSessionSummaryStateNameHandlesOutOfRange(t *testing.T) {
	s := sessionSummary{State: 3}
	if s.stateName() != "ACTIVE" {
		t.Errorf("expected ACTIVE for state 3, got %q", s.stateName())
	}
	s.State = 99
	if s.stateName() != "UNKNOWN" {
		t.Errorf("expected UNKNOWN for an out-of-range state, got %q", s.stateName())
	}
}
