// Command fixgateway runs one counterparty's FIX session: it accepts the
// counterparty's TCP connection, recovers sequence-number state from the
// durable index, then lets engine.Engine's three workers own the session
// from there. Config load -> wire dependencies -> run until signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"fixgateway/archive"
	"fixgateway/clock"
	"fixgateway/config"
	"fixgateway/control"
	"fixgateway/engine"
	fgerrors "fixgateway/errors"
	"fixgateway/logging"
	"fixgateway/metrics"
	"fixgateway/seqindex"
	"fixgateway/session"
	"fixgateway/transport"
)

// engineAdapter satisfies control.Engine over *engine.Engine, translating
// engine.SessionSummary into control's own wire-shape struct so control
// has no compile-time dependency on the engine package's types.
type engineAdapter struct {
	eng *engine.Engine
}

func (a engineAdapter) ListSessions() []control.SessionSummary {
	summaries := a.eng.ListSessions()
	out := make([]control.SessionSummary, len(summaries))
	for i, s := range summaries {
		out[i] = control.SessionSummary{
			SessionID:         s.SessionID,
			State:             s.State,
			LastSentMsgSeqNum: s.LastSentMsgSeqNum,
			ExpectedSeqNo:     s.ExpectedSeqNo,
		}
	}
	return out
}

func (a engineAdapter) RequestResend(sessionID uint64, begin, end int32) bool {
	return a.eng.RequestResend(sessionID, begin, end)
}

func (a engineAdapter) ForceLogout(sessionID uint64) bool {
	return a.eng.ForceLogout(sessionID)
}

func main() {
	configPath := flag.String("config", "", "path to a fixgateway config file (yaml, json, toml)")
	flag.Parse()

	opts, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fixgateway:", err)
		os.Exit(1)
	}

	logger, err := logging.New(opts.LogLevel, opts.LogEncoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fixgateway:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(opts, logger); err != nil {
		logger.Errorw("fixgateway exited with error", "error", err)
		os.Exit(1)
	}
}

func run(opts config.Options, logger *zap.SugaredLogger) error {
	tr := transport.NewInprocTransport()

	arch, err := openArchive(opts)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	idx, err := seqindex.Open(opts.IndexFilePath, opts.IndexFileCapacity)
	if err != nil {
		return fmt.Errorf("seqindex: %w", err)
	}
	defer idx.Close()

	stats := metrics.NewRegistry("fixgateway")

	onErr := func(e *fgerrors.SessionError) {
		logger.Errorw("session error", "session", e.SessionID, "kind", e.Kind.String(), "cause", e.Cause)
	}

	inboundStreamID := opts.SenderCompID + "<-" + opts.TargetCompID
	outboundStreamID := opts.SenderCompID + "->" + opts.TargetCompID
	netOut := &swappableWriter{}

	spec := engine.SessionSpec{
		Config: session.Config{
			SessionID:                 opts.SessionID,
			SenderCompID:              opts.SenderCompID,
			TargetCompID:              opts.TargetCompID,
			HeartbeatIntervalSec:      opts.HeartbeatIntervalSec,
			SequenceNumbersPersistent: opts.SequenceNumbersPersistent,
		},
		InboundStreamID:  inboundStreamID,
		OutboundStreamID: outboundStreamID,
		NetOut:           netOut,
	}

	eng, err := engine.New(opts, clock.NewSystem(), tr, arch, idx, stats, onErr, []engine.SessionSpec{spec})
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng.Start(ctx)
	defer eng.Stop()

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.ListenAddr, err)
	}
	defer ln.Close()
	logger.Infow("listening for the counterparty", "addr", opts.ListenAddr, "sender", opts.SenderCompID, "target", opts.TargetCompID)

	go acceptLoop(ln, tr, netOut, inboundStreamID, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", stats.Handler())
	metricsServer := &http.Server{Addr: opts.MetricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("metrics server stopped", "error", err)
		}
	}()
	defer metricsServer.Close()

	ctl := control.New(engineAdapter{eng: eng})
	controlServer := &http.Server{Addr: opts.ControlAddr, Handler: ctl.Handler()}
	go func() {
		if err := controlServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorw("control server stopped", "error", err)
		}
	}()
	defer controlServer.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logger.Infow("shutting down")
	if err := idx.Flush(); err != nil {
		logger.Errorw("final index flush failed", "error", err)
	}
	return nil
}

// acceptLoop accepts one counterparty connection at a time: FIX sessions
// are point to point, so a second Accept before the first connection
// drops simply replaces netOut's target and starts a fresh pumpInbound.
func acceptLoop(ln net.Listener, tr *transport.InprocTransport, netOut *swappableWriter, inboundStreamID string, logger *zap.SugaredLogger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			logger.Errorw("accept failed", "error", err)
			return
		}
		logger.Infow("counterparty connected", "remote", conn.RemoteAddr())
		netOut.attach(conn)
		go pumpInbound(conn, tr, inboundStreamID, func(reason error) {
			logger.Infow("counterparty connection closed", "remote", conn.RemoteAddr(), "reason", reason)
		})
	}
}

func openArchive(opts config.Options) (archive.Archive, error) {
	if opts.ArchiveDir == "" {
		return archive.NewMemoryArchive(), nil
	}
	if err := os.MkdirAll(opts.ArchiveDir, 0o755); err != nil {
		return nil, err
	}
	sqliteArch, err := archive.OpenSQLiteArchive(filepath.Join(opts.ArchiveDir, "messages.db"))
	if err != nil {
		return nil, err
	}
	if opts.RingCacheSize > 0 {
		return archive.NewRingCache(sqliteArch, opts.RingCacheSize), nil
	}
	return sqliteArch, nil
}


