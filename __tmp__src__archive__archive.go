// Package archive is the append-only message log the Indexer and Replayer
// read from. It defines the storage-agnostic Archive contract, an
// in-memory implementation for tests, a SQLite-backed implementation with
// a prepared-statement writer, and a hot-cache decorator backed by a
// fixed-size ring buffer of the most recent entries.
package archive

// ArchivedMessage is one message recorded on a session's stream. ArchivePos
// is assigned by Archive.Append and ignored on input.
type ArchivedMessage struct {
	SessionID   uint64
	MsgSeqNum   int32
	MsgType     string
	RawBody     []byte
	SendingTime int64 // epoch nanoseconds
	ArchivePos  int64
}

// Handler receives one archived message at a time from Scan. Returning
// false signals back-pressure: Scan stops delivering and returns the
// count delivered so far, without having consumed this message.
type Handler func(ArchivedMessage) (consumed bool)

// Archive is the append-only, per-session-ordered message log. The
// archive stream is totally ordered per SessionID; Scan delivers messages
// in that order starting from a given position.
type Archive interface {
	// Append records msg, assigns it the next ArchivePos for its session,
	// and returns the stored copy.
	Append(msg ArchivedMessage) (ArchivedMessage, error)

	// Scan delivers messages for sessionID starting at fromArchivePos
	// (inclusive) in archive order, stopping early if handler returns
	// false. It returns the number of messages delivered.
	Scan(sessionID uint64, fromArchivePos int64, handler Handler) (delivered int, err error)

	// PositionForSeqNum resolves the ArchivePos of the message with the
	// given MsgSeqNum on sessionID's stream, so a ResendRequest's
	// beginSeqNo can be turned into a starting position for Scan.
	PositionForSeqNum(sessionID uint64, seqNum int32) (archivePos int64, found bool)
}


