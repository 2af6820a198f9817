// Package seqindex is the durable write-ahead index mapping
// sessionId -> (lastSentSeqNum, lastRecvSeqNum, archivePosition). The file
// format is two alternating copies (A/B), each an {epoch, checksum,
// length} header followed by fixed-size entries; a reader picks the
// highest-epoch copy whose checksum is valid, so corruption of one copy
// never loses state. There is no example repo with a durable sequencing
// layer to ground this on — quickfixgo owns that concern internally in
// the pack's other FIX-adjacent code — so this is implemented directly
// against the documented file format using encoding/binary and os; no
// WAL/mmap library in the retrieved examples would meaningfully simplify
// a fixed binary record layout this small.
package seqindex

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"sync"
)

const (
	headerSize = 20 // epoch(8) + checksum(4) + length(4) + reserved(4)
	entrySize  = 24 // sessionId(8) + lastSent(4) + lastRecv(4) + archivePos(8)
)

// Direction distinguishes which sequence counter onMessage updates.
type Direction int

const (
	DirectionSent Direction = iota
	DirectionReceived
)

// Record is one session's durable sequencing state.
type Record struct {
	SessionID      uint64
	LastSentSeqNum int32
	LastRecvSeqNum int32
	ArchivePos     int64
}

// Index is the durable A/B sequence-number index. All public methods are
// safe for concurrent use; Lookup never touches disk after Load.
type Index struct {
	mu       sync.Mutex
	file     *os.File
	capacity int
	epoch    uint64
	active   int // which copy currently holds the latest flushed state
	records  map[uint64]*Record
}

// Open creates the index file at path if it does not exist, sized for
// capacity entries per copy, and loads the highest-epoch valid copy.
func Open(path string, capacity int) (*Index, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("seqindex: open %s: %w", path, err)
	}

	idx := &Index{file: f, capacity: capacity, records: make(map[uint64]*Record)}
	if err := idx.ensureSized(capacity); err != nil {
		f.Close()
		return nil, err
	}
	if err := idx.load(); err != nil {
		f.Close()
		return nil, err
	}
	return idx, nil
}

func copySize(capacity int) int64 {
	return int64(headerSize + capacity*entrySize)
}

func (idx *Index) ensureSized(capacity int) error {
	want := 2 * copySize(capacity)
	info, err := idx.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() >= want {
		return nil
	}
	if err := idx.file.Truncate(want); err != nil {
		return fmt.Errorf("seqindex: truncate: %w", err)
	}
	return nil
}

// load reads both copies and adopts the highest-epoch one whose checksum
// validates. A file with neither copy valid (fresh file) starts empty.
func (idx *Index) load() error {
	cs := copySize(idx.capacity)
	var bestEpoch uint64
	bestCopy := -1
	var bestEntries map[uint64]*Record

	for copyIdx := 0; copyIdx < 2; copyIdx++ {
		entries, epoch, ok := idx.readCopy(int64(copyIdx)*cs)
		if !ok {
			continue
		}
		if bestCopy == -1 || epoch > bestEpoch {
			bestEpoch = epoch
			bestCopy = copyIdx
			bestEntries = entries
		}
	}

	if bestCopy == -1 {
		idx.epoch = 0
		idx.active = -1
		return nil
	}
	idx.epoch = bestEpoch
	idx.active = bestCopy
	idx.records = bestEntries
	return nil
}

func (idx *Index) readCopy(offset int64) (map[uint64]*Record, uint64, bool) {
	header := make([]byte, headerSize)
	if _, err := idx.file.ReadAt(header, offset); err != nil {
		return nil, 0, false
	}
	epoch := binary.LittleEndian.Uint64(header[0:8])
	checksum := binary.LittleEndian.Uint32(header[8:12])
	length := binary.LittleEndian.Uint32(header[12:16])
	if epoch == 0 {
		return nil, 0, false // never written
	}
	if int(length) > idx.capacity {
		return nil, 0, false
	}

	body := make([]byte, int(length)*entrySize)
	if len(body) > 0 {
		if _, err := idx.file.ReadAt(body, offset+headerSize); err != nil {
			return nil, 0, false
		}
	}
	if crc32.ChecksumIEEE(body) != checksum {
		return nil, 0, false
	}

	entries := make(map[uint64]*Record, length)
	for i := 0; i < int(length); i++ {
		b := body[i*entrySize : (i+1)*entrySize]
		r := &Record{
			SessionID:      binary.LittleEndian.Uint64(b[0:8]),
			LastSentSeqNum: int32(binary.LittleEndian.Uint32(b[8:12])),
			LastRecvSeqNum: int32(binary.LittleEndian.Uint32(b[12:16])),
			ArchivePos:     int64(binary.LittleEndian.Uint64(b[16:24])),
		}
		entries[r.SessionID] = r
	}
	return entries, epoch, true
}

// OnMessage updates the in-memory record for sessionID. The caller (the
// Indexer worker, which sees the Framer's facts in order) applies them
// with non-decreasing archivePos: a received-message fact carries the
// position of the last archived outbound message, so it can repeat the
// previous fact's archivePos.
func (idx *Index) OnMessage(sessionID uint64, seqNum int32, archivePos int64, dir Direction) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	r, ok := idx.records[sessionID]
	if !ok {
		r = &Record{SessionID: sessionID}
		idx.records[sessionID] = r
	}
	switch dir {
	case DirectionSent:
		r.LastSentSeqNum = seqNum
	case DirectionReceived:
		r.LastRecvSeqNum = seqNum
	}
	r.ArchivePos = archivePos
}

// Lookup returns sessionID's record from the in-memory state (loaded at
// Open and updated by OnMessage, whether or not flushed yet); it never
// touches disk.
func (idx *Index) Lookup(sessionID uint64) (Record, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	r, ok := idx.records[sessionID]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Flush writes the current in-memory state to the inactive copy and
// fsyncs it, growing the file (doubling capacity) first if the record
// count has outgrown the configured capacity.
func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if len(idx.records) > idx.capacity {
		if err := idx.growLocked(); err != nil {
			return err
		}
	}

	body := make([]byte, 0, len(idx.records)*entrySize)
	for _, r := range idx.records {
		var b [entrySize]byte
		binary.LittleEndian.PutUint64(b[0:8], r.SessionID)
		binary.LittleEndian.PutUint32(b[8:12], uint32(r.LastSentSeqNum))
		binary.LittleEndian.PutUint32(b[12:16], uint32(r.LastRecvSeqNum))
		binary.LittleEndian.PutUint64(b[16:24], uint64(r.ArchivePos))
		body = append(body, b[:]...)
	}
	checksum := crc32.ChecksumIEEE(body)

	nextEpoch := idx.epoch + 1
	target := (idx.active + 1) % 2 // write the copy NOT currently active; -1+1=0 on a fresh file

	var header [headerSize]byte
	binary.LittleEndian.PutUint64(header[0:8], nextEpoch)
	binary.LittleEndian.PutUint32(header[8:12], checksum)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(idx.records)))

	offset := int64(target) * copySize(idx.capacity)
	if _, err := idx.file.WriteAt(header[:], offset); err != nil {
		return fmt.Errorf("seqindex: write header: %w", err)
	}
	if len(body) > 0 {
		if _, err := idx.file.WriteAt(body, offset+headerSize); err != nil {
			return fmt.Errorf("seqindex: write body: %w", err)
		}
	}
	if err := idx.file.Sync(); err != nil {
		return fmt.Errorf("seqindex: fsync: %w", err)
	}

	idx.epoch = nextEpoch
	idx.active = target
	return nil
}

// growLocked doubles capacity, extends the file to two copies of the new
// size and resets epoch/active so the next write lands in copy A; bytes
// already in the file are not cleared. The caller's Flush then fills and
// writes the new copy. Must be called
// with idx.mu held.
func (idx *Index) growLocked() error {
	newCapacity := idx.capacity * 2
	if newCapacity == 0 {
		newCapacity = 16
	}
	for newCapacity < len(idx.records) {
		newCapacity *= 2
	}
	if err := idx.file.Truncate(2 * copySize(newCapacity)); err != nil {
		return fmt.Errorf("seqindex: grow truncate: %w", err)
	}
	idx.capacity = newCapacity
	idx.active = -1
	idx.epoch = 0
	return nil
}

// Close releases the underlying file handle.
func (idx *Index) Close() error {
	return idx.file.Close()
}


