package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegistryExposesObservedValues(t *testing.T) {
	r := NewRegistry("fixgateway_test")

	r.SetSessionsInState("ACTIVE", 3)
	r.MessageSent("0")
	r.MessageReceived("D")
	r.GapDetected()
	r.ResendServiced()
	r.BackPressure("framer")
	r.Disconnect("timeout")
	r.SetReplayCursors(2, 5)
	r.ObserveIndexFlush(0.002, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		`fixgateway_test_sessions_in_state{state="ACTIVE"} 3`,
		`fixgateway_test_messages_sent_total{msg_type="0"} 1`,
		`fixgateway_test_messages_received_total{msg_type="D"} 1`,
		`fixgateway_test_sequence_gaps_detected_total 1`,
		`fixgateway_test_resend_requests_serviced_total 1`,
		`fixgateway_test_back_pressure_total{worker="framer"} 1`,
		`fixgateway_test_disconnects_total{cause="timeout"} 1`,
		`fixgateway_test_replay_cursors_active 2`,
		`fixgateway_test_replay_cursors_queued 5`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected exposition text to contain %q, got:\n%s", want, body)
		}
	}
}

func TestObserveIndexFlushCountsErrors(t *testing.T) {
	r := NewRegistry("fixgateway_test2")
	r.ObserveIndexFlush(0.001, nil)
	r.ObserveIndexFlush(0.5, errFlush)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "fixgateway_test2_seqindex_flush_errors_total 1") {
		t.Errorf("expected exactly one flush error recorded, got:\n%s", rec.Body.String())
	}
}

var errFlush = &testError{"flush failed"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
