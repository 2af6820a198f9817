package indexer

import (
	"path/filepath"
	"testing"

	"fixgateway/errors"
	"fixgateway/seqindex"
	"fixgateway/transport"
)

func TestRecorderAndIndexerRoundTrip(t *testing.T) {
	tr := transport.NewInprocTransport()
	rec := NewRecorder(tr)

	path := filepath.Join(t.TempDir(), "index.dat")
	idx, err := seqindex.Open(path, 16)
	if err != nil {
		t.Fatalf("seqindex.Open: %v", err)
	}
	defer idx.Close()

	var reported []error
	ix := New(idx, tr, func(e *errors.SessionError) { reported = append(reported, e) })

	if status := rec.Record(1, 5, 100, seqindex.DirectionSent); status != transport.OK {
		t.Fatalf("Record sent: status=%v", status)
	}
	if status := rec.Record(1, 7, 110, seqindex.DirectionReceived); status != transport.OK {
		t.Fatalf("Record received: status=%v", status)
	}

	applied := ix.Tick()
	if applied != 2 {
		t.Fatalf("expected 2 events applied, got %d", applied)
	}

	rec2, ok := ix.Lookup(1)
	if !ok {
		t.Fatalf("expected session 1 to be present after Tick")
	}
	if rec2.LastSentSeqNum != 5 || rec2.LastRecvSeqNum != 7 || rec2.ArchivePos != 110 {
		t.Errorf("unexpected recovered record: %+v", rec2)
	}

	ix.Flush()
	if len(reported) != 0 {
		t.Fatalf("expected no errors reported on a clean flush, got %v", reported)
	}
}

func TestTickWithNoEventsAppliesNothing(t *testing.T) {
	tr := transport.NewInprocTransport()
	path := filepath.Join(t.TempDir(), "index.dat")
	idx, err := seqindex.Open(path, 16)
	if err != nil {
		t.Fatalf("seqindex.Open: %v", err)
	}
	defer idx.Close()

	ix := New(idx, tr, nil)
	if applied := ix.Tick(); applied != 0 {
		t.Errorf("expected 0 applied on an empty stream, got %d", applied)
	}
}


