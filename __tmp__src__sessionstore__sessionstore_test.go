package sessionstore

import (
	"testing"

	"fixgateway/clock"
	"fixgateway/session"
	"fixgateway/transport"

	"github.com/quickfixgo/quickfix"
)

// fakeProxy is a no-op Proxy — these tests only exercise registry
// bookkeeping, not wire sends.
type fakeProxy struct{}

func (fakeProxy) SendLogon(session.Identity, int32, int64, int, bool) transport.Status {
	return transport.OK
}
func (fakeProxy) SendLogout(session.Identity, int32, int64, string) transport.Status {
	return transport.OK
}
func (fakeProxy) SendHeartbeat(session.Identity, int32, int64, string) transport.Status {
	return transport.OK
}
func (fakeProxy) SendTestRequest(session.Identity, int32, int64, string) transport.Status {
	return transport.OK
}
func (fakeProxy) SendResendRequest(session.Identity, int32, int64, int32, int32) transport.Status {
	return transport.OK
}
func (fakeProxy) SendReject(session.Identity, int32, int64, int32, quickfix.Tag, string, string, string) transport.Status {
	return transport.OK
}
func (fakeProxy) SendSequenceReset(session.Identity, int32, int64, int32, bool, bool) transport.Status {
	return transport.OK
}
func (fakeProxy) SendApplicationReplay(session.Identity, int32, int64, session.ReplayMessage) transport.Status {
	return transport.OK
}
func (fakeProxy) Disconnect(session.Identity) {}

func TestAddGetRemove(t *testing.T) {
	st := New()
	mc := clock.NewManual(0)
	sess := session.New(session.Config{SessionID: 1, SenderCompID: "US", TargetCompID: "THEM", HeartbeatIntervalSec: 30}, mc, fakeProxy{}, nil, nil)
	identity := session.Identity{SenderCompID: "US", TargetCompID: "THEM"}

	if err := st.Add(sess, identity); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if st.Len() != 1 {
		t.Fatalf("expected 1 registered session, got %d", st.Len())
	}

	got, ok := st.Get(1)
	if !ok || got != sess {
		t.Fatalf("Get(1) did not return the registered session")
	}

	got, ok = st.GetByCompIDs("THEM", "US")
	if !ok || got != sess {
		t.Fatalf("GetByCompIDs did not return the registered session")
	}

	st.Remove(1)
	if st.Len() != 0 {
		t.Fatalf("expected 0 sessions after Remove, got %d", st.Len())
	}
	if _, ok := st.Get(1); ok {
		t.Fatalf("expected Get(1) to miss after Remove")
	}
}

func TestAddRejectsDuplicateIdentity(t *testing.T) {
	st := New()
	mc := clock.NewManual(0)
	identity := session.Identity{SenderCompID: "US", TargetCompID: "THEM"}

	s1 := session.New(session.Config{SessionID: 1, SenderCompID: "US", TargetCompID: "THEM"}, mc, fakeProxy{}, nil, nil)
	s2 := session.New(session.Config{SessionID: 2, SenderCompID: "US", TargetCompID: "THEM"}, mc, fakeProxy{}, nil, nil)

	if err := st.Add(s1, identity); err != nil {
		t.Fatalf("Add s1: %v", err)
	}
	if err := st.Add(s2, identity); err == nil {
		t.Fatalf("expected Add to reject duplicate comp-ID pair")
	}
}


