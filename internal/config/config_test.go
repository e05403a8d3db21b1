package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "ammd.yaml")
	if err := os.WriteFile(cfgFile, []byte("listen: \":9000\"\nchain-id: 56\nsnapshot-interval: 1m\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AMMD_CHAIN_ID", "97")

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("listen", ":8080", "")
	flags.String("log-level", "info", "")
	if err := flags.Parse([]string{"--log-level=debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(cfgFile, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Fatalf("listen from file expected, got %q", cfg.Listen)
	}
	if cfg.ChainID != 97 {
		t.Fatalf("chain id from env expected, got %d", cfg.ChainID)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level from flag expected, got %q", cfg.Log.Level)
	}
	if cfg.SnapshotInterval != time.Minute || !cfg.Gzip {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestLoadDecodeTopicMap(t *testing.T) {
	flags := pflag.NewFlagSet("decode", pflag.ContinueOnError)
	flags.String("topic0-map", "", "")
	if err := flags.Parse([]string{"--topic0-map=0xabc=swap, bad ,0xdef=mint"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := LoadDecode(filepath.Join(t.TempDir(), "missing-ok.yaml"), nil)
	if err == nil {
		t.Fatalf("expected error for missing explicit config file, got %+v", cfg)
	}

	cfg, err = LoadDecode("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Topic0Map) != 2 || cfg.Topic0Map["0xabc"] != "swap" || cfg.Topic0Map["0xdef"] != "mint" {
		t.Fatalf("topic map mismatch: %+v", cfg.Topic0Map)
	}
}

func TestParseTimestamp(t *testing.T) {
	if ts, err := ParseTimestamp("1700000000"); err != nil || ts != 1700000000 {
		t.Fatalf("unix parse: %d %v", ts, err)
	}
	if ts, err := ParseTimestamp("2023-11-14T22:13:20Z"); err != nil || ts != 1700000000 {
		t.Fatalf("rfc3339 parse: %d %v", ts, err)
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error")
	}
}
