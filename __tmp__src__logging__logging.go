// Package logging constructs the zap logger the gateway process holds —
// never a package-level global, so multiple engines (or tests) can run
// with independent loggers. Workers do not hold a logger; they report
// through errors.Handler.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.SugaredLogger at level ("debug", "info", "warn",
// "error") with encoding ("console" or "json").
func New(level, encoding string) (*zap.SugaredLogger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("logging: unknown level %q: %w", level, err)
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(lvl),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build: %w", err)
	}
	return logger.Sugar(), nil
}

// Noop returns a logger that discards everything, for tests that need a
// non-nil logger but assert nothing about its output.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}


