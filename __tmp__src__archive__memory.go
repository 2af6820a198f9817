package archive

import "sync"

// MemoryArchive is an in-memory Archive: per-session append-only slices
// guarded by one RWMutex. Used by tests and by the Replayer's own tests,
// since the contract is what matters, not a mandatory backing store.
type MemoryArchive struct {
	mu       sync.RWMutex
	messages map[uint64][]ArchivedMessage
	nextPos  int64
}

// NewMemoryArchive creates an empty MemoryArchive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{messages: make(map[uint64][]ArchivedMessage)}
}

func (a *MemoryArchive) Append(msg ArchivedMessage) (ArchivedMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextPos++
	msg.ArchivePos = a.nextPos
	a.messages[msg.SessionID] = append(a.messages[msg.SessionID], msg)
	return msg, nil
}

func (a *MemoryArchive) Scan(sessionID uint64, fromArchivePos int64, handler Handler) (int, error) {
	a.mu.RLock()
	stream := a.messages[sessionID]
	snapshot := make([]ArchivedMessage, len(stream))
	copy(snapshot, stream)
	a.mu.RUnlock()

	delivered := 0
	for _, msg := range snapshot {
		if msg.ArchivePos < fromArchivePos {
			continue
		}
		if !handler(msg) {
			break
		}
		delivered++
	}
	return delivered, nil
}

func (a *MemoryArchive) PositionForSeqNum(sessionID uint64, seqNum int32) (int64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, msg := range a.messages[sessionID] {
		if msg.MsgSeqNum == seqNum {
			return msg.ArchivePos, true
		}
	}
	return 0, false
}


