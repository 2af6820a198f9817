package archive

import "sync"

// RingCache wraps a backing Archive with a fixed-capacity ring buffer of
// the most recently appended messages, consulted before falling back to
// the backing store. Pre-allocated slice, head/count indices, O(1)
// insertion with the oldest entry silently overwritten once full.
type RingCache struct {
	backing Archive

	mu      sync.RWMutex
	entries []ArchivedMessage
	head    int
	count   int
	maxSize int
}

// NewRingCache wraps backing with a hot cache of maxSize most-recent
// messages.
func NewRingCache(backing Archive, maxSize int) *RingCache {
	return &RingCache{
		backing: backing,
		entries: make([]ArchivedMessage, maxSize),
		maxSize: maxSize,
	}
}

func (c *RingCache) Append(msg ArchivedMessage) (ArchivedMessage, error) {
	stored, err := c.backing.Append(msg)
	if err != nil {
		return stored, err
	}

	c.mu.Lock()
	writeIdx := (c.head + c.count) % c.maxSize
	c.entries[writeIdx] = stored
	if c.count < c.maxSize {
		c.count++
	} else {
		c.head = (c.head + 1) % c.maxSize
	}
	c.mu.Unlock()

	return stored, nil
}

// oldestCachedForSession returns the oldest ring entry for sessionID, if
// the ring currently holds any entries for that session.
func (c *RingCache) oldestCachedForSession(sessionID uint64) (ArchivedMessage, bool) {
	for i := 0; i < c.count; i++ {
		idx := (c.head + i) % c.maxSize
		if c.entries[idx].SessionID == sessionID {
			return c.entries[idx], true
		}
	}
	return ArchivedMessage{}, false
}

func (c *RingCache) Scan(sessionID uint64, fromArchivePos int64, handler Handler) (int, error) {
	c.mu.RLock()
	oldest, cached := c.oldestCachedForSession(sessionID)
	c.mu.RUnlock()

	// The requested range starts before what the ring still holds for
	// this session (or the ring hasn't seen this session at all): the
	// backing store is the only source of truth for that range.
	if !cached || fromArchivePos < oldest.ArchivePos {
		return c.backing.Scan(sessionID, fromArchivePos, handler)
	}

	c.mu.RLock()
	matches := make([]ArchivedMessage, 0, c.count)
	for i := 0; i < c.count; i++ {
		idx := (c.head + i) % c.maxSize
		e := c.entries[idx]
		if e.SessionID == sessionID && e.ArchivePos >= fromArchivePos {
			matches = append(matches, e)
		}
	}
	c.mu.RUnlock()

	delivered := 0
	for _, e := range matches {
		if !handler(e) {
			break
		}
		delivered++
	}
	return delivered, nil
}

func (c *RingCache) PositionForSeqNum(sessionID uint64, seqNum int32) (int64, bool) {
	// The seqNum->position index is not cache-worthy on its own — the
	// backing store already indexes it directly (SQLite index, or a
	// linear scan the in-memory backend keeps small).
	return c.backing.PositionForSeqNum(sessionID, seqNum)
}


