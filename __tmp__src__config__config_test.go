package config

import (
	"os"
	"path/filepath"
	"testing"

	"fixgateway/constants"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	opts, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.HeartbeatIntervalSec != 30 {
		t.Errorf("expected default heartbeat interval 30, got %d", opts.HeartbeatIntervalSec)
	}
	if opts.MaxConcurrentSessionReplays != 4 {
		t.Errorf("expected default replay concurrency 4, got %d", opts.MaxConcurrentSessionReplays)
	}
	if !opts.GapfillTypeSet()[constants.MsgTypeHeartbeat] {
		t.Errorf("expected Heartbeat in the default gap-fill set, got %v", opts.GapfillOnReplayMessageTypes)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixgateway.yaml")
	contents := "sender_comp_id: US\ntarget_comp_id: THEM\nheartbeat_interval_sec: 10\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	opts, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.SenderCompID != "US" || opts.TargetCompID != "THEM" {
		t.Errorf("expected comp IDs from file, got sender=%q target=%q", opts.SenderCompID, opts.TargetCompID)
	}
	if opts.HeartbeatIntervalSec != 10 {
		t.Errorf("expected heartbeat override 10, got %d", opts.HeartbeatIntervalSec)
	}
	// Untouched defaults still apply.
	if opts.RingCacheSize != 4096 {
		t.Errorf("expected unmodified default ring cache size 4096, got %d", opts.RingCacheSize)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FIXGATEWAY_SENDER_COMP_ID", "ENVSENDER")
	opts, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.SenderCompID != "ENVSENDER" {
		t.Errorf("expected env override to win, got %q", opts.SenderCompID)
	}
}

func TestPrecisionResolvesEnumAndRejectsUnknown(t *testing.T) {
	opts := Options{SendingTimePrecision: "micros"}
	p, err := opts.Precision()
	if err != nil || p != constants.PrecisionMicros {
		t.Fatalf("expected PrecisionMicros, got %v err=%v", p, err)
	}

	opts.SendingTimePrecision = "fortnights"
	if _, err := opts.Precision(); err == nil {
		t.Errorf("expected an error for an unknown precision string")
	}
}


