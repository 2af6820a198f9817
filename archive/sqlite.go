package archive

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS archived_messages (
	archive_pos  INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id   INTEGER NOT NULL,
	msg_seq_num  INTEGER NOT NULL,
	msg_type     TEXT NOT NULL,
	sending_time INTEGER NOT NULL,
	raw_body     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archived_messages_session_seq
	ON archived_messages(session_id, msg_seq_num);
CREATE INDEX IF NOT EXISTS idx_archived_messages_session_pos
	ON archived_messages(session_id, archive_pos);
`

const insertMessageQuery = `
INSERT INTO archived_messages (session_id, msg_seq_num, msg_type, sending_time, raw_body)
VALUES (?, ?, ?, ?, ?)
`

const scanQuery = `
SELECT archive_pos, session_id, msg_seq_num, msg_type, sending_time, raw_body
FROM archived_messages
WHERE session_id = ? AND archive_pos >= ?
ORDER BY archive_pos ASC
`

const positionForSeqQuery = `
SELECT archive_pos FROM archived_messages
WHERE session_id = ? AND msg_seq_num = ?
ORDER BY archive_pos ASC LIMIT 1
`

// SQLiteArchive persists the message stream to a SQLite database, WAL mode
// with a prepared insert statement reused for every Append.
type SQLiteArchive struct {
	db         *sql.DB
	stmtInsert *sql.Stmt
}

// OpenSQLiteArchive opens (creating if absent) a SQLite-backed Archive at
// dbPath.
func OpenSQLiteArchive(dbPath string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}

	a := &SQLiteArchive{db: db}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}
	if a.stmtInsert, err = db.Prepare(insertMessageQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("archive: prepare insert: %w", err)
	}
	return a, nil
}

func (a *SQLiteArchive) Close() error {
	if a.stmtInsert != nil {
		_ = a.stmtInsert.Close()
	}
	return a.db.Close()
}

func (a *SQLiteArchive) Append(msg ArchivedMessage) (ArchivedMessage, error) {
	res, err := a.stmtInsert.Exec(msg.SessionID, msg.MsgSeqNum, msg.MsgType, msg.SendingTime, msg.RawBody)
	if err != nil {
		return ArchivedMessage{}, fmt.Errorf("archive: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ArchivedMessage{}, fmt.Errorf("archive: last insert id: %w", err)
	}
	msg.ArchivePos = id
	return msg, nil
}

func (a *SQLiteArchive) Scan(sessionID uint64, fromArchivePos int64, handler Handler) (int, error) {
	rows, err := a.db.Query(scanQuery, sessionID, fromArchivePos)
	if err != nil {
		return 0, fmt.Errorf("archive: scan query: %w", err)
	}
	defer rows.Close()

	delivered := 0
	for rows.Next() {
		var msg ArchivedMessage
		if err := rows.Scan(&msg.ArchivePos, &msg.SessionID, &msg.MsgSeqNum, &msg.MsgType, &msg.SendingTime, &msg.RawBody); err != nil {
			return delivered, fmt.Errorf("archive: scan row: %w", err)
		}
		if !handler(msg) {
			break
		}
		delivered++
	}
	return delivered, rows.Err()
}

func (a *SQLiteArchive) PositionForSeqNum(sessionID uint64, seqNum int32) (int64, bool) {
	var pos int64
	err := a.db.QueryRow(positionForSeqQuery, sessionID, seqNum).Scan(&pos)
	if err != nil {
		return 0, false
	}
	return pos, true
}
