package config

import (
	"testing"

	"github.com/spf13/pflag"
)

func replayFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.String("pg-dsn", "", "")
	flags.Bool("reset-failures", false, "")
	flags.String("log-level", "info", "")
	if err := flags.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return flags
}

func TestLoadReplay(t *testing.T) {
	flags := replayFlags(t, "--pg-dsn=postgres://localhost/indexer", "--reset-failures")

	cfg, err := LoadReplay("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PgDSN != "postgres://localhost/indexer" {
		t.Fatalf("pg dsn = %q", cfg.PgDSN)
	}
	if !cfg.ResetFailures {
		t.Fatalf("reset-failures flag not honored")
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadReplayDefaults(t *testing.T) {
	cfg, err := LoadReplay("", replayFlags(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ResetFailures {
		t.Fatalf("reset-failures must default to false")
	}
}

func TestSplitAndClean(t *testing.T) {
	got := splitAndClean(" 0xabc, ,0xdef ,")
	if len(got) != 2 || got[0] != "0xabc" || got[1] != "0xdef" {
		t.Fatalf("split mismatch: %v", got)
	}
	if splitAndClean("") != nil {
		t.Fatalf("empty input must yield nil")
	}
}
