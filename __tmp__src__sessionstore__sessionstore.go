// Package sessionstore is the concurrent-safe registry of Session FSM
// instances, keyed both by a numeric session ID and by the comp-ID pair
// carried on the wire. The engine looks sessions up here for its console
// operations; each Framer is handed its Session directly.
package sessionstore

import (
	"fmt"
	"sync"

	"fixgateway/session"
)

// Key identifies a session by its wire-level comp-ID pair.
type Key struct {
	SenderCompID string
	TargetCompID string
}

func keyFor(senderCompID, targetCompID string) Key {
	return Key{SenderCompID: senderCompID, TargetCompID: targetCompID}
}

// Store is a thread-safe registry of live Sessions.
type Store struct {
	mu      sync.RWMutex
	byID    map[uint64]*session.Session
	byCompr map[Key]*session.Session
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		byID:    make(map[uint64]*session.Session),
		byCompr: make(map[Key]*session.Session),
	}
}

// Add registers sess under both its SessionID and its comp-ID pair. It
// returns an error if either key is already registered to a different
// session, since two live Sessions must never share an identity.
func (st *Store) Add(sess *session.Session, identity session.Identity) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if existing, ok := st.byID[sess.SessionID()]; ok && existing != sess {
		return fmt.Errorf("sessionstore: sessionId %d already registered", sess.SessionID())
	}
	key := keyFor(identity.SenderCompID, identity.TargetCompID)
	if existing, ok := st.byCompr[key]; ok && existing != sess {
		return fmt.Errorf("sessionstore: comp-ID pair %s/%s already registered", identity.SenderCompID, identity.TargetCompID)
	}

	st.byID[sess.SessionID()] = sess
	st.byCompr[key] = sess
	return nil
}

// Get retrieves a session by its numeric ID.
func (st *Store) Get(sessionID uint64) (*session.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.byID[sessionID]
	return sess, ok
}

// GetByCompIDs retrieves a session by the comp-ID pair carried on the wire.
// senderCompID/targetCompID are given from the perspective of the inbound
// message: the peer's SenderCompID is our configured TargetCompID and vice
// versa, so callers pass them exactly as decoded from the header.
func (st *Store) GetByCompIDs(senderCompID, targetCompID string) (*session.Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.byCompr[keyFor(targetCompID, senderCompID)]
	return sess, ok
}

// Remove drops sess from both indexes. Safe to call on an unregistered ID.
func (st *Store) Remove(sessionID uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.byID[sessionID]
	if !ok {
		return
	}
	delete(st.byID, sessionID)
	for k, v := range st.byCompr {
		if v == sess {
			delete(st.byCompr, k)
			break
		}
	}
}

// All returns a snapshot slice of every registered session.
func (st *Store) All() []*session.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*session.Session, 0, len(st.byID))
	for _, sess := range st.byID {
		out = append(out, sess)
	}
	return out
}

// Len reports the number of registered sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byID)
}


