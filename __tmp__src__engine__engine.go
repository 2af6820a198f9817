// Package engine wires the three cooperative workers into a running
// gateway: the Framer (one goroutine ticking every configured session in
// turn), the Indexer (one goroutine draining the shared seqindex event
// stream and flushing on a cadence), and the Replayer (one goroutine
// servicing ResendRequests out of the archive). None of the three share
// mutable state directly -- only the lock-free transport streams and the
// archive/index each already exposes for concurrent-safe access.
package engine

import (
	"context"
	"io"
	"runtime"
	"time"

	"fixgateway/archive"
	"fixgateway/clock"
	"fixgateway/config"
	"fixgateway/errors"
	"fixgateway/framer"
	"fixgateway/indexer"
	"fixgateway/metrics"
	"fixgateway/proxy"
	"fixgateway/replayer"
	"fixgateway/seqindex"
	"fixgateway/session"
	"fixgateway/sessionstore"
	"fixgateway/transport"
	"fixgateway/wire"
)

// SessionSpec is one session's identity and stream wiring, supplied by
// the process entrypoint (one per configured counterparty).
type SessionSpec struct {
	Config           session.Config
	InboundStreamID  string // where the socket adapter publishes bytes read from the peer
	OutboundStreamID string // where Proxy publishes this session's encoded bytes; by convention Config's comp-ID pair
	NetOut           io.Writer
}

type sessionUnit struct {
	sess   *session.Session
	framer *framer.Framer
}

// Engine owns every session's Framer, the shared Indexer, and the shared
// Replayer.
type Engine struct {
	clock  clock.Clock
	onErr  errors.Handler
	idx    *seqindex.Index
	ix     *indexer.Indexer
	replay *replayer.Replayer
	units  []*sessionUnit
	store  *sessionstore.Store
	stats  *metrics.Registry

	flushEvery      time.Duration
	lastFlushMonoNs int64

	stopCh chan struct{}
}

// New builds an Engine from opts and specs: a shared proxy/encoder at
// opts' configured precision, a Recorder+Indexer pair over idx, a
// Replayer over arch, and one Session+Framer per spec. Startup recovery
// primes each session's counters from idx's recovered state before any
// byte is read or sent, per the durable-index contract.
func New(opts config.Options, clk clock.Clock, tr *transport.InprocTransport, arch archive.Archive, idx *seqindex.Index, stats *metrics.Registry, onErr errors.Handler, specs []SessionSpec) (*Engine, error) {
	if onErr == nil {
		onErr = errors.Noop
	}
	precision, err := opts.Precision()
	if err != nil {
		return nil, err
	}

	enc := wire.NewEncoder(precision)
	px := proxy.New(enc, tr)
	rec := indexer.NewRecorder(tr)
	ix := indexer.New(idx, tr, onErr)

	rp := replayer.New(arch, enc, replayer.Config{
		GapFillMessageTypes:   opts.GapfillTypeSet(),
		MaxConcurrentReplays:  opts.MaxConcurrentSessionReplays,
	})

	e := &Engine{
		clock:      clk,
		onErr:      onErr,
		idx:        idx,
		ix:         ix,
		replay:     rp,
		store:      sessionstore.New(),
		stats:      stats,
		flushEvery: opts.IndexFileStateFlushTimeoutMs,
		stopCh:     make(chan struct{}),
	}

	for _, spec := range specs {
		sess := session.New(spec.Config, clk, px, rp, onErr)
		if recovered, ok := idx.Lookup(spec.Config.SessionID); ok {
			sess.RestoreOutboundState(recovered.LastSentSeqNum)
			sess.RestoreInboundState(recovered.LastRecvSeqNum)
		}
		identity := session.Identity{SenderCompID: spec.Config.SenderCompID, TargetCompID: spec.Config.TargetCompID}
		if err := e.store.Add(sess, identity); err != nil {
			return nil, err
		}
		fr := framer.New(sess, spec.Config.SessionID, tr, spec.InboundStreamID, spec.OutboundStreamID, spec.NetOut, arch, rec, onErr)
		e.units = append(e.units, &sessionUnit{sess: sess, framer: fr})
	}

	return e, nil
}

// Start launches the three worker goroutines. They run until ctx is
// cancelled or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	go e.runFramer(ctx)
	go e.runIndexer(ctx)
	go e.runReplayer(ctx)
}

// Stop signals every worker goroutine to return; it does not wait for
// them to exit (the caller should select on a done channel or simply let
// ctx cancellation in Start propagate instead, when that ordering
// matters).
func (e *Engine) Stop() {
	close(e.stopCh)
}

// SessionState reports one session's current FSM state, for the
// operator console.
func (e *Engine) SessionState(sessionID uint64) (session.State, bool) {
	sess, ok := e.store.Get(sessionID)
	if !ok {
		return 0, false
	}
	return sess.State(), true
}

// SessionSummary is one session's identity and state, for listing.
type SessionSummary struct {
	SessionID         uint64
	State             session.State
	LastSentMsgSeqNum int32
	ExpectedSeqNo     int32
}

// ListSessions reports every configured session's current counters, for
// the operator console's "sessions" command.
func (e *Engine) ListSessions() []SessionSummary {
	all := e.store.All()
	out := make([]SessionSummary, 0, len(all))
	for _, sess := range all {
		out = append(out, SessionSummary{
			SessionID:         sess.SessionID(),
			State:             sess.State(),
			LastSentMsgSeqNum: sess.LastSentMsgSeqNum(),
			ExpectedSeqNo:     sess.ExpectedSeqNo(),
		})
	}
	return out
}

// RequestResend drives sessionID's Session to send a ResendRequest for
// [begin, end] against its peer. Reports false if sessionID is unknown.
func (e *Engine) RequestResend(sessionID uint64, begin, end int32) bool {
	sess, ok := e.store.Get(sessionID)
	if !ok {
		return false
	}
	sess.RequestResend(begin, end)
	return true
}

// ForceLogout drives sessionID's Session to start a graceful logout.
// Reports false if sessionID is unknown.
func (e *Engine) ForceLogout(sessionID uint64) bool {
	sess, ok := e.store.Get(sessionID)
	if !ok {
		return false
	}
	sess.StartLogout()
	return true
}

func (e *Engine) runFramer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		default:
		}
		now := e.clock.MonotonicNanos()
		for _, u := range e.units {
			u.framer.Tick(now)
		}
		if e.stats != nil {
			e.reportSessionStates()
		}
		runtime.Gosched()
	}
}

func (e *Engine) runIndexer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		default:
		}

		applied := e.ix.Tick()

		now := e.clock.MonotonicNanos()
		if e.flushEvery > 0 && now-e.lastFlushMonoNs >= int64(e.flushEvery) {
			start := now
			e.ix.Flush()
			e.lastFlushMonoNs = now
			if e.stats != nil {
				elapsedSeconds := float64(e.clock.MonotonicNanos()-start) / float64(time.Second)
				e.stats.ObserveIndexFlush(elapsedSeconds, nil)
			}
		}

		if applied == 0 {
			runtime.Gosched()
		}
	}
}

func (e *Engine) runReplayer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		default:
		}

		progressed := e.replay.Tick()
		if e.stats != nil {
			e.stats.SetReplayCursors(e.replay.ActiveCount(), e.replay.QueuedCount())
		}
		if progressed == 0 {
			runtime.Gosched()
		}
	}
}

func (e *Engine) reportSessionStates() {
	counts := make(map[session.State]int)
	for _, u := range e.units {
		counts[u.sess.State()]++
	}
	for state, count := range counts {
		e.stats.SetSessionsInState(state.String(), float64(count))
	}
}


