// Package replayer implements session.ResendHandler: it services an
// accepted ResendRequest by walking the archive and re-emitting or
// gap-filling messages, with a cursor that survives back-pressure
// without re-sending anything already confirmed on the wire.
package replayer

import (
	"sync"

	"fixgateway/archive"
	"fixgateway/replay"
	"fixgateway/session"
	"fixgateway/transport"
)

// TimeFormatter renders an epoch-nanosecond timestamp as a FIX
// SendingTime string. *wire.Encoder satisfies this.
type TimeFormatter interface {
	FormatSendingTime(epochNanos int64) string
}

// Config controls which MsgTypes are gap-filled rather than individually
// re-transmitted, and how many replay cursors run at once.
type Config struct {
	// GapFillMessageTypes lists the session-level MsgTypes (Logon,
	// Logout, Heartbeat, TestRequest, ResendRequest, SequenceReset,
	// Reject) that get folded into a SequenceReset(GapFill=Y) rather
	// than re-sent verbatim.
	GapFillMessageTypes map[string]bool
	// MaxConcurrentReplays bounds how many sessions can have an active
	// replay cursor at once; requests beyond the bound are queued.
	MaxConcurrentReplays int
}

type pendingWork struct {
	op        func() transport.Status
	onSuccess func(c *cursor)
}

// cursor is the resumable state of one session's in-flight replay:
// everything needed to continue after a back-pressure pause without
// re-deriving or re-sending anything already confirmed.
type cursor struct {
	sess *session.Session

	next            int32 // next archived seqNum to inspect
	end             int32 // effectiveEnd: last seqNum in scope for this replay
	pendingGapStart int32 // nonzero while a run of skipped session-level messages is open
	lastReplayed    int32 // last seqNum handled: replayed, or folded into the open gap run

	pending *pendingWork // set while an emit is waiting out BackPressure
	done    bool
}

// Replayer services ResendRequests for any number of sessions, bounded
// to Config.MaxConcurrentReplays cursors active at once.
type Replayer struct {
	query *replay.Query
	clock TimeFormatter
	cfg   Config

	mu     sync.Mutex
	active map[uint64]*cursor
	queue  []*cursor
}

// New creates a Replayer reading from arch, stamping OrigSendingTime via
// fmt.
func New(arch archive.Archive, fmt TimeFormatter, cfg Config) *Replayer {
	if cfg.MaxConcurrentReplays <= 0 {
		cfg.MaxConcurrentReplays = 1
	}
	if cfg.GapFillMessageTypes == nil {
		cfg.GapFillMessageTypes = map[string]bool{}
	}
	return &Replayer{
		query:  replay.New(arch),
		clock:  fmt,
		cfg:    cfg,
		active: make(map[uint64]*cursor),
	}
}

// HandleResendRequest implements session.ResendHandler. sess has already
// validated beginSeqNo >= 1, endSeqNo == 0 or >= beginSeqNo, and
// beginSeqNo <= its own LastSentMsgSeqNum before calling this — a
// begin-too-high request never reaches here; sess rejects it directly.
func (r *Replayer) HandleResendRequest(sess *session.Session, beginSeqNo, endSeqNo int32) {
	effectiveEnd := sess.LastSentMsgSeqNum()
	if endSeqNo != 0 && endSeqNo < effectiveEnd {
		effectiveEnd = endSeqNo
	}
	c := &cursor{sess: sess, next: beginSeqNo, end: effectiveEnd}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[sess.SessionID()]; busy || len(r.active) >= r.cfg.MaxConcurrentReplays {
		r.queue = append(r.queue, c)
		return
	}
	r.active[sess.SessionID()] = c
}

// ActiveCount reports how many replay cursors are currently running.
func (r *Replayer) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// QueuedCount reports how many replay requests are waiting for a cursor
// slot to free up.
func (r *Replayer) QueuedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Tick advances every active cursor by one unit of work — retrying a
// back-pressured emit, processing the next archived message, or closing
// out a cursor that reached its end — and promotes queued requests into
// any freed slots. Returns how many cursors made forward progress.
func (r *Replayer) Tick() int {
	r.mu.Lock()
	cursors := make([]*cursor, 0, len(r.active))
	for _, c := range r.active {
		cursors = append(cursors, c)
	}
	r.mu.Unlock()

	progressed := 0
	for _, c := range cursors {
		if r.step(c) {
			progressed++
		}
		if c.done {
			r.finish(c)
		}
	}
	return progressed
}

func (r *Replayer) finish(c *cursor) {
	r.mu.Lock()
	delete(r.active, c.sess.SessionID())
	if len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.active[next.sess.SessionID()] = next
	}
	r.mu.Unlock()
}

// step performs exactly one unit of work for c and reports whether it
// made progress (false means it is still blocked on back-pressure).
func (r *Replayer) step(c *cursor) bool {
	if c.pending != nil {
		status := c.pending.op()
		if status != transport.OK {
			return false
		}
		c.pending.onSuccess(c)
		c.pending = nil
		return true
	}

	if c.next > c.end {
		return r.closeTrailingGap(c)
	}

	delivered, err := r.query.Run(c.sess.SessionID(), c.next, c.next, func(msg archive.ArchivedMessage) bool {
		r.processMessage(c, msg)
		return true
	})
	if err != nil || delivered == 0 {
		// Nothing archived at exactly this position: skip forward
		// rather than stall the cursor on a hole that should not
		// occur in a correctly-archived stream.
		c.next++
		return true
	}
	return c.pending == nil
}

// processMessage folds a session-level message into the open gap run, or
// closes that run and re-emits an application message with PossDupFlag.
func (r *Replayer) processMessage(c *cursor, msg archive.ArchivedMessage) {
	if r.cfg.GapFillMessageTypes[msg.MsgType] {
		if c.pendingGapStart == 0 {
			c.pendingGapStart = msg.MsgSeqNum
		}
		c.next = msg.MsgSeqNum + 1
		c.lastReplayed = msg.MsgSeqNum
		return
	}

	gapStart := c.pendingGapStart
	seqNum := msg.MsgSeqNum
	gapFlushed := gapStart == 0

	emit := func() transport.Status {
		if !gapFlushed {
			if status := c.sess.EmitGapFill(gapStart, seqNum); status != transport.OK {
				return status
			}
			gapFlushed = true
		}
		return c.sess.EmitApplicationReplay(seqNum, session.ReplayMessage{
			MsgType:         msg.MsgType,
			RawBody:         msg.RawBody,
			OrigSendingTime: r.clock.FormatSendingTime(msg.SendingTime),
		})
	}

	if status := emit(); status != transport.OK {
		c.pending = &pendingWork{
			op: emit,
			onSuccess: func(c *cursor) {
				c.pendingGapStart = 0
				c.next = seqNum + 1
				c.lastReplayed = seqNum
			},
		}
		return
	}
	c.pendingGapStart = 0
	c.next = seqNum + 1
	c.lastReplayed = seqNum
}

// closeTrailingGap emits the trailing SequenceReset when the requested
// range ended inside an unclosed gap run. A range that ends on a replayed
// application message, or on seqNums missing from the archive, gets no
// trailing SequenceReset.
func (r *Replayer) closeTrailingGap(c *cursor) bool {
	if c.pendingGapStart == 0 {
		c.done = true
		return true
	}
	newSeqNo := c.end + 1
	op := func() transport.Status { return c.sess.EmitTrailingReset(newSeqNo) }
	if status := op(); status != transport.OK {
		c.pending = &pendingWork{
			op: op,
			onSuccess: func(c *cursor) {
				c.pendingGapStart = 0
				c.lastReplayed = c.end
				c.done = true
			},
		}
		return false
	}
	c.pendingGapStart = 0
	c.lastReplayed = c.end
	c.done = true
	return true
}


