package sweeper

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfig_ParsesDefaultsAndFlags(t *testing.T) {
	fs := flag.NewFlagSet("sweeper", flag.ContinueOnError)
	t.Setenv("IMMUNIZE_SWEEPER_PORT", "9095")
	t.Setenv("IMMUNIZE_SWEEPER_DB_PATH", "tmp/immunize.db")

	cfg, err := ParseConfig(fs, []string{"-sweep-interval", "15s"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 9095 {
		t.Fatalf("port = %d, want 9095", cfg.Port)
	}
	if cfg.DBPath != "tmp/immunize.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "tmp/immunize.db")
	}
	if cfg.SweepInterval != 15*time.Second {
		t.Fatalf("sweep interval = %v, want 15s", cfg.SweepInterval)
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("sweeper", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8095 {
		t.Fatalf("port = %d, want 8095", cfg.Port)
	}
	if cfg.DBPath != "data/immunize.db" {
		t.Fatalf("db path = %q, want %q", cfg.DBPath, "data/immunize.db")
	}
	if cfg.SweepInterval != time.Minute {
		t.Fatalf("sweep interval = %v, want 1m", cfg.SweepInterval)
	}
}
