package engine

import (
	"context"
	"testing"
	"time"

	"fixgateway/archive"
	"fixgateway/clock"
	"fixgateway/config"
	"fixgateway/seqindex"
	"fixgateway/session"
	"fixgateway/transport"
)

func testSpec(sessionID uint64) SessionSpec {
	return SessionSpec{
		Config: session.Config{
			SessionID:            sessionID,
			SenderCompID:         "US",
			TargetCompID:         "THEM",
			HeartbeatIntervalSec: 30,
		},
		InboundStreamID:  "US<-THEM",
		OutboundStreamID: "US->THEM",
	}
}

func TestNewRecoversSessionStateFromIndex(t *testing.T) {
	idx, err := seqindex.Open(t.TempDir()+"/idx.dat", 16)
	if err != nil {
		t.Fatalf("seqindex.Open: %v", err)
	}
	defer idx.Close()
	idx.OnMessage(1, 5, 100, seqindex.DirectionSent)
	idx.OnMessage(1, 7, 100, seqindex.DirectionReceived)

	opts := config.Options{SendingTimePrecision: "millis", MaxConcurrentSessionReplays: 1}
	tr := transport.NewInprocTransport()
	arch := archive.NewMemoryArchive()
	clk := clock.NewManual(0)

	e, err := New(opts, clk, tr, arch, idx, nil, nil, []SessionSpec{testSpec(1)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	state, ok := e.SessionState(1)
	if !ok {
		t.Fatalf("expected session 1 to be present")
	}
	if state != session.Connecting {
		t.Errorf("recovery must not itself move the session out of CONNECTING, got %v", state)
	}

	u := e.units[0]
	if u.sess.LastSentMsgSeqNum() != 5 {
		t.Errorf("expected recovered LastSentMsgSeqNum 5, got %d", u.sess.LastSentMsgSeqNum())
	}
	if u.sess.ExpectedSeqNo() != 8 {
		t.Errorf("expected recovered ExpectedSeqNo 8, got %d", u.sess.ExpectedSeqNo())
	}
}

func TestStartDrivesInboundLogonToActive(t *testing.T) {
	idx, err := seqindex.Open(t.TempDir()+"/idx.dat", 16)
	if err != nil {
		t.Fatalf("seqindex.Open: %v", err)
	}
	defer idx.Close()

	opts := config.Options{SendingTimePrecision: "millis", MaxConcurrentSessionReplays: 1}
	tr := transport.NewInprocTransport()
	arch := archive.NewMemoryArchive()
	clk := clock.NewManual(0)

	e, err := New(opts, clk, tr, arch, idx, nil, nil, []SessionSpec{testSpec(1)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr.Publish("US<-THEM", []byte("35=A\x0149=THEM\x0156=US\x0134=1\x0152=20250101-00:00:00\x0198=0\x01108=30\x01"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	e.Start(ctx)
	defer e.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if state, _ := e.SessionState(1); state == session.Active {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("session never reached ACTIVE")
}
