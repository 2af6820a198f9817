// Package indexer implements the worker that keeps the durable
// sequence-number index current: it drains a dedicated transport stream
// of small fixed-size records the Framer publishes for each processed
// message (an outbound one once it is archived, an inbound one, which is
// not archived, with the last archived position), and applies them to a
// seqindex.Index. The stream
// (rather than a direct call into seqindex) is a single-producer
// lock-free queue between the Framer and Indexer workers — no shared
// mutable state, only messages crossing a queue.
package indexer

import (
	"encoding/binary"

	"fixgateway/errors"
	"fixgateway/seqindex"
	"fixgateway/transport"
)

const streamID = "__seqindex_events__"
const eventSize = 21 // sessionID(8) + seqNum(4) + archivePos(8) + direction(1)

// Recorder is the Framer-facing producer: one Record call per archived
// outbound message and per dispatched inbound message.
type Recorder struct {
	pub transport.Publisher
}

// NewRecorder wraps pub to publish onto the Indexer's dedicated stream.
func NewRecorder(pub transport.Publisher) *Recorder {
	return &Recorder{pub: pub}
}

// Record offers sessionID's latest (seqNum, archivePos, dir) fact to the
// Indexer. A BackPressure status means the Framer must retry the same
// call on its next tick rather than drop it.
func (r *Recorder) Record(sessionID uint64, seqNum int32, archivePos int64, dir seqindex.Direction) transport.Status {
	buf := make([]byte, eventSize)
	binary.BigEndian.PutUint64(buf[0:8], sessionID)
	binary.BigEndian.PutUint32(buf[8:12], uint32(seqNum))
	binary.BigEndian.PutUint64(buf[12:20], uint64(archivePos))
	if dir == seqindex.DirectionReceived {
		buf[20] = 1
	}
	_, status := r.pub.Publish(streamID, buf)
	return status
}

// Indexer consumes the Recorder's stream and keeps a seqindex.Index
// current. Flush is caller-driven (e.g. on a timer tick) rather than
// automatic, per the configurable index flush cadence.
type Indexer struct {
	idx    *seqindex.Index
	cursor transport.Cursor
	onErr  errors.Handler
}

// New creates an Indexer reading from sub starting at the beginning of
// the Indexer's stream.
func New(idx *seqindex.Index, sub transport.Subscriber, onErr errors.Handler) *Indexer {
	if onErr == nil {
		onErr = errors.Noop
	}
	return &Indexer{idx: idx, cursor: sub.Subscribe(streamID, 0), onErr: onErr}
}

// Tick drains every currently-buffered event and applies it to the
// index, returning the count applied. A malformed record (wrong size)
// is skipped rather than halting the worker — it cannot occur from this
// package's own Recorder, but a corrupt queue entry must never wedge the
// Indexer.
func (ix *Indexer) Tick() int {
	applied := 0
	ix.cursor.Poll(func(pos transport.Position, buf []byte) bool {
		if len(buf) != eventSize {
			return true
		}
		sessionID := binary.BigEndian.Uint64(buf[0:8])
		seqNum := int32(binary.BigEndian.Uint32(buf[8:12]))
		archivePos := int64(binary.BigEndian.Uint64(buf[12:20]))
		dir := seqindex.DirectionSent
		if buf[20] == 1 {
			dir = seqindex.DirectionReceived
		}
		ix.idx.OnMessage(sessionID, seqNum, archivePos, dir)
		applied++
		return true
	})
	return applied
}

// Flush persists the index to disk. A failure is reported through onErr,
// not returned: the session continues serving from memory, with
// durability compromised until the next successful flush, per the
// persistence-failure handling the rest of this module follows.
func (ix *Indexer) Flush() {
	if err := ix.idx.Flush(); err != nil {
		ix.onErr(errors.New(errors.PersistenceFailure, 0, err))
	}
}

// Lookup exposes the index's recovered state for a session, used at
// startup to prime a Session's counters before any Logon is exchanged.
func (ix *Indexer) Lookup(sessionID uint64) (seqindex.Record, bool) {
	return ix.idx.Lookup(sessionID)
}
