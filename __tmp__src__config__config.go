// Package config loads engine startup options: comp IDs, session
// timers, the durable-index flush cadence, replay concurrency, which
// MsgTypes are gap-filled on replay, storage directories, and wire
// precision. Backed by github.com/spf13/viper with file + environment
// variable overrides — deliberately thin, since CLI/configuration
// loading is named a non-goal beyond needing some typed options source.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"fixgateway/constants"
)

// Options is every engine-wide setting a constructor needs.
type Options struct {
	SenderCompID string `mapstructure:"sender_comp_id"`
	TargetCompID string `mapstructure:"target_comp_id"`

	HeartbeatIntervalSec      int  `mapstructure:"heartbeat_interval_sec"`
	SequenceNumbersPersistent bool `mapstructure:"sequence_numbers_persistent"`

	IndexFilePath                string        `mapstructure:"index_file_path"`
	IndexFileCapacity            int           `mapstructure:"index_file_capacity"`
	IndexFileStateFlushTimeoutMs time.Duration `mapstructure:"index_file_state_flush_timeout_ms"`

	ArchiveDir string `mapstructure:"archive_dir"`
	RingCacheSize int  `mapstructure:"ring_cache_size"`

	MaxConcurrentSessionReplays int      `mapstructure:"max_concurrent_session_replays"`
	GapfillOnReplayMessageTypes []string `mapstructure:"gapfill_on_replay_message_types"`

	SendingTimePrecision string `mapstructure:"sending_time_precision"`

	LogLevel    string `mapstructure:"log_level"`
	LogEncoding string `mapstructure:"log_encoding"`

	SessionID   uint64 `mapstructure:"session_id"`
	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	ControlAddr string `mapstructure:"control_addr"`
}

// defaults applied before any file/env layer.
func defaults() Options {
	return Options{
		HeartbeatIntervalSec:         30,
		SequenceNumbersPersistent:    true,
		IndexFilePath:                "fixgateway.seqindex",
		IndexFileCapacity:            1024,
		IndexFileStateFlushTimeoutMs: time.Second,
		ArchiveDir:                   "./archive",
		RingCacheSize:                4096,
		MaxConcurrentSessionReplays:  4,
		GapfillOnReplayMessageTypes: []string{
			constants.MsgTypeLogon,
			constants.MsgTypeLogout,
			constants.MsgTypeHeartbeat,
			constants.MsgTypeTestRequest,
			constants.MsgTypeResendRequest,
			constants.MsgTypeSequenceReset,
			constants.MsgTypeReject,
		},
		SendingTimePrecision: "millis",
		LogLevel:             "info",
		LogEncoding:          "console",
		SessionID:            1,
		ListenAddr:           ":5001",
		MetricsAddr:          ":9090",
		ControlAddr:          ":9091",
	}
}

// Load reads path (if it exists) over the defaults, then applies
// FIXGATEWAY_*-prefixed environment variable overrides.
func Load(path string) (Options, error) {
	v := viper.New()
	d := defaults()
	for key, val := range structToMap(d) {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix("FIXGATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return Options{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return opts, nil
}

// Precision resolves SendingTimePrecision to the wire package's enum.
func (o Options) Precision() (constants.FixTimePrecision, error) {
	switch strings.ToLower(o.SendingTimePrecision) {
	case "seconds":
		return constants.PrecisionSeconds, nil
	case "millis", "milliseconds", "":
		return constants.PrecisionMillis, nil
	case "micros", "microseconds":
		return constants.PrecisionMicros, nil
	case "nanos", "nanoseconds":
		return constants.PrecisionNanos, nil
	default:
		return 0, fmt.Errorf("config: unknown sending_time_precision %q", o.SendingTimePrecision)
	}
}

// GapfillTypeSet turns GapfillOnReplayMessageTypes into the set shape the
// replayer package expects.
func (o Options) GapfillTypeSet() map[string]bool {
	set := make(map[string]bool, len(o.GapfillOnReplayMessageTypes))
	for _, mt := range o.GapfillOnReplayMessageTypes {
		set[mt] = true
	}
	return set
}

// structToMap flattens Options into viper default keys via its
// mapstructure tags, so SetDefault sees the same keys Unmarshal targets.
func structToMap(o Options) map[string]interface{} {
	return map[string]interface{}{
		"sender_comp_id":                       o.SenderCompID,
		"target_comp_id":                       o.TargetCompID,
		"heartbeat_interval_sec":                o.HeartbeatIntervalSec,
		"sequence_numbers_persistent":           o.SequenceNumbersPersistent,
		"index_file_path":                       o.IndexFilePath,
		"index_file_capacity":                   o.IndexFileCapacity,
		"index_file_state_flush_timeout_ms":     o.IndexFileStateFlushTimeoutMs,
		"archive_dir":                           o.ArchiveDir,
		"ring_cache_size":                       o.RingCacheSize,
		"max_concurrent_session_replays":        o.MaxConcurrentSessionReplays,
		"gapfill_on_replay_message_types":       o.GapfillOnReplayMessageTypes,
		"sending_time_precision":                o.SendingTimePrecision,
		"log_level":                             o.LogLevel,
		"log_encoding":                          o.LogEncoding,
		"session_id":                            o.SessionID,
		"listen_addr":                           o.ListenAddr,
		"metrics_addr":                          o.MetricsAddr,
		"control_addr":                          o.ControlAddr,
	}
}


