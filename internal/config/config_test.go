package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
server:
  port: "9090"
postgres:
  url: postgres://quiz@localhost/quiz
cache:
  schema_version: 3
  content_path: content.yaml
connectivity:
  probe_interval: 2s
analytics:
  timezone: UTC
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Cache.SchemaVersion != 3 || cfg.Log.Format != "json" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if got := TTLDuration(cfg.Connectivity.ProbeInterval, time.Minute); got != 2*time.Second {
		t.Fatalf("expected 2s probe interval, got %s", got)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("empty should fall back, got %s", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("invalid should fall back, got %s", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
