// Package replay implements the archive range query the Replayer walks
// to service a ResendRequest: resolve a starting MsgSeqNum to an archive
// position, then scan forward in archive order, stopping at endSeqNo or
// on the handler's first back-pressure signal.
package replay

import (
	"fmt"

	"fixgateway/archive"
)

// Query runs range scans against an Archive.
type Query struct {
	arch archive.Archive
}

// New creates a Query over arch.
func New(arch archive.Archive) *Query {
	return &Query{arch: arch}
}

// Run delivers every archived message for sessionID with
// beginSeqNo <= MsgSeqNum <= endSeqNo (endSeqNo == 0 means unbounded) to
// handler, in archive order, stopping early if handler returns false. It
// returns the count of messages delivered.
func (q *Query) Run(sessionID uint64, beginSeqNo, endSeqNo int32, handler archive.Handler) (int, error) {
	startPos, found := q.arch.PositionForSeqNum(sessionID, beginSeqNo)
	if !found {
		return 0, fmt.Errorf("replay: no archived message with seqNum %d for session %d", beginSeqNo, sessionID)
	}

	delivered := 0
	_, err := q.arch.Scan(sessionID, startPos, func(msg archive.ArchivedMessage) bool {
		if endSeqNo != 0 && msg.MsgSeqNum > endSeqNo {
			return false
		}
		if !handler(msg) {
			return false
		}
		delivered++
		return true
	})
	return delivered, err
}
