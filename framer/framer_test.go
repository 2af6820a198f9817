package framer

import (
	"bytes"
	"errors"
	"testing"

	"fixgateway/archive"
	fgerrors "fixgateway/errors"
	"fixgateway/indexer"
	"fixgateway/proxy"
	"fixgateway/seqindex"
	"fixgateway/session"
	"fixgateway/transport"
	"fixgateway/wire"
)

type nopResends struct{}

func (nopResends) HandleResendRequest(sess *session.Session, begin, end int32) {}

func newTestSession(tr *transport.InprocTransport) *session.Session {
	enc := wire.NewEncoder(0)
	p := proxy.New(enc, tr)
	cfg := session.Config{SessionID: 1, SenderCompID: "US", TargetCompID: "THEM", HeartbeatIntervalSec: 30}
	return session.New(cfg, clockStub{}, p, nopResends{}, nil)
}

type clockStub struct{}

func (clockStub) EpochNanos() int64      { return 1700000000000000000 }
func (clockStub) MonotonicNanos() int64  { return 0 }

func TestDrainOutboundArchivesBodyOnlyAndForwards(t *testing.T) {
	tr := transport.NewInprocTransport()
	sess := newTestSession(tr)
	arch := archive.NewMemoryArchive()

	var netOut bytes.Buffer
	f := New(sess, 1, tr, "US<-THEM", "US->THEM", &netOut, arch, nil, nil)

	sess.StartLogon(false)
	f.Tick(0)

	if netOut.Len() == 0 {
		t.Fatalf("expected the encoded Logon to reach netOut")
	}

	delivered, err := arch.Scan(1, 0, func(msg archive.ArchivedMessage) bool {
		if msg.MsgSeqNum != 1 || msg.MsgType != "A" {
			t.Errorf("unexpected archived message: %+v", msg)
		}
		if bytes.Contains(msg.RawBody, []byte("35=A")) {
			t.Errorf("RawBody must not contain the envelope MsgType field: %q", msg.RawBody)
		}
		if !bytes.Contains(msg.RawBody, []byte("108=30")) {
			t.Errorf("RawBody should retain HeartBtInt: %q", msg.RawBody)
		}
		return true
	})
	if err != nil || delivered != 1 {
		t.Fatalf("expected exactly one archived message, got %d err=%v", delivered, err)
	}
}

func TestDrainInboundDispatchesWithoutArchiving(t *testing.T) {
	tr := transport.NewInprocTransport()
	sess := newTestSession(tr)
	arch := archive.NewMemoryArchive()
	rec := indexer.NewRecorder(tr)

	f := New(sess, 1, tr, "US<-THEM", "US->THEM", nil, arch, rec, nil)

	tr.Publish("US<-THEM", []byte("35=A\x0149=THEM\x0156=US\x0134=1\x0152=20250101-00:00:00\x0198=0\x01108=30\x01"))
	f.Tick(0)

	if sess.State() != session.Active {
		t.Fatalf("expected the session to become Active after Logon, got %v", sess.State())
	}

	if delivered, _ := arch.Scan(1, 0, func(archive.ArchivedMessage) bool { return true }); delivered != 0 {
		t.Errorf("inbound messages must never be archived, got %d entries", delivered)
	}
}

func TestOutboundNetWriteBackPressureRetriesWithoutDoubleArchiving(t *testing.T) {
	tr := transport.NewInprocTransport()
	sess := newTestSession(tr)
	arch := archive.NewMemoryArchive()

	failOnce := &flakyWriter{failTimes: 1}
	f := New(sess, 1, tr, "US<-THEM", "US->THEM", failOnce, arch, nil, nil)

	sess.StartLogon(false)
	f.Tick(0) // netOut fails, fragment must not be archived yet
	if delivered, _ := arch.Scan(1, 0, func(archive.ArchivedMessage) bool { return true }); delivered != 0 {
		t.Fatalf("expected no archive entry while netOut is failing, got %d", delivered)
	}

	f.Tick(0) // netOut succeeds this time
	if delivered, _ := arch.Scan(1, 0, func(archive.ArchivedMessage) bool { return true }); delivered != 1 {
		t.Fatalf("expected exactly one archive entry after the retry succeeded, got %d", delivered)
	}
}

type flakyWriter struct {
	failTimes int
	buf       bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.failTimes > 0 {
		w.failTimes--
		return 0, errors.New("simulated write failure")
	}
	return w.buf.Write(p)
}

func TestInboundDecodeFailureLogsOutAndReportsDecoderFailure(t *testing.T) {
	tr := transport.NewInprocTransport()
	sess := newTestSession(tr)

	var reported []*fgerrors.SessionError
	f := New(sess, 1, tr, "US<-THEM", "US->THEM", nil, nil, nil, func(e *fgerrors.SessionError) {
		reported = append(reported, e)
	})

	tr.Publish("US<-THEM", []byte("not-a-valid-fragment"))
	f.Tick(0)

	if len(reported) != 1 || reported[0].Kind != fgerrors.DecoderFailure {
		t.Fatalf("expected a single DecoderFailure report, got %+v", reported)
	}
	if sess.State() != session.Disconnected {
		t.Fatalf("expected the session to disconnect on a malformed fragment, got %v", sess.State())
	}
}

func TestIndexerRecordsBothDirections(t *testing.T) {
	tr := transport.NewInprocTransport()
	sess := newTestSession(tr)
	arch := archive.NewMemoryArchive()
	rec := indexer.NewRecorder(tr)

	f := New(sess, 1, tr, "US<-THEM", "US->THEM", nil, arch, rec, nil)

	tr.Publish("US<-THEM", []byte("35=A\x0149=THEM\x0156=US\x0134=1\x0152=20250101-00:00:00\x0198=0\x01108=30\x01"))
	f.Tick(0) // processes the inbound Logon, which reactively sends our own Logon
	f.Tick(0) // drains that reactive outbound Logon

	idx, err := seqindex.Open(t.TempDir()+"/idx.dat", 16)
	if err != nil {
		t.Fatalf("seqindex.Open: %v", err)
	}
	defer idx.Close()

	ix := indexer.New(idx, tr, nil)
	ix.Tick()

	rec2, ok := ix.Lookup(1)
	if !ok {
		t.Fatalf("expected session 1 to be present in the index")
	}
	if rec2.LastSentSeqNum != 1 || rec2.LastRecvSeqNum != 1 {
		t.Errorf("expected both directions recorded, got %+v", rec2)
	}
}
