package seqindex

import (
	"os"
	"path/filepath"
	"testing"
)

func tempIndexPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "seqindex.dat")
}

func TestFlushAndReload(t *testing.T) {
	path := tempIndexPath(t)

	idx, err := Open(path, 8)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	idx.OnMessage(1, 5, 100, DirectionSent)
	idx.OnMessage(1, 4, 100, DirectionReceived)
	idx.OnMessage(2, 9, 200, DirectionSent)
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	idx.Close()

	reloaded, err := Open(path, 8)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reloaded.Close()

	r1, ok := reloaded.Lookup(1)
	if !ok {
		t.Fatalf("expected session 1 to be found after reload")
	}
	if r1.LastSentSeqNum != 5 || r1.LastRecvSeqNum != 4 || r1.ArchivePos != 100 {
		t.Errorf("unexpected record for session 1: %+v", r1)
	}

	r2, ok := reloaded.Lookup(2)
	if !ok || r2.LastSentSeqNum != 9 {
		t.Errorf("unexpected record for session 2: %+v ok=%v", r2, ok)
	}

	if _, ok := reloaded.Lookup(99); ok {
		t.Errorf("expected lookup miss for unknown session")
	}
}

func TestSecondFlushAlternatesCopyAndBumpsEpoch(t *testing.T) {
	path := tempIndexPath(t)
	idx, err := Open(path, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	idx.OnMessage(1, 1, 10, DirectionSent)
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush 1: %v", err)
	}
	firstActive := idx.active
	firstEpoch := idx.epoch

	idx.OnMessage(1, 2, 20, DirectionSent)
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush 2: %v", err)
	}

	if idx.active == firstActive {
		t.Errorf("expected second flush to target the other copy")
	}
	if idx.epoch <= firstEpoch {
		t.Errorf("expected epoch to increase, got %d then %d", firstEpoch, idx.epoch)
	}
}

func TestCorruptedCopyRecoversFromTheOther(t *testing.T) {
	path := tempIndexPath(t)
	idx, err := Open(path, 4)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	idx.OnMessage(7, 3, 30, DirectionSent)
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	idx.OnMessage(7, 4, 40, DirectionSent)
	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush 2: %v", err)
	}
	idx.Close()

	// Corrupt the currently-active copy's checksum byte directly on disk.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open for corruption: %v", err)
	}
	activeOffset := int64(idx.active) * copySize(idx.capacity)
	if _, err := f.WriteAt([]byte{0xFF, 0xFF, 0xFF, 0xFF}, activeOffset+8); err != nil {
		t.Fatalf("corrupt checksum: %v", err)
	}
	f.Close()

	recovered, err := Open(path, 4)
	if err != nil {
		t.Fatalf("reopen after corruption: %v", err)
	}
	defer recovered.Close()

	r, ok := recovered.Lookup(7)
	if !ok {
		t.Fatalf("expected to recover session 7 from the surviving copy")
	}
	if r.LastSentSeqNum != 3 {
		t.Errorf("expected recovery to fall back to the older valid copy (seq=3), got %d", r.LastSentSeqNum)
	}
}

func TestFlushGrowsFileWhenCapacityExceeded(t *testing.T) {
	path := tempIndexPath(t)
	idx, err := Open(path, 2)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer idx.Close()

	idx.OnMessage(1, 1, 1, DirectionSent)
	idx.OnMessage(2, 1, 1, DirectionSent)
	idx.OnMessage(3, 1, 1, DirectionSent)

	if err := idx.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if idx.capacity < 3 {
		t.Fatalf("expected capacity to grow past 3, got %d", idx.capacity)
	}

	for _, sid := range []uint64{1, 2, 3} {
		if _, ok := idx.Lookup(sid); !ok {
			t.Errorf("expected session %d to survive growth", sid)
		}
	}
}


