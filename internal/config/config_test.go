package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected http address %q", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "codeclimb.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Fatalf("unexpected fetch timeout %v", cfg.FetchTimeout)
	}
	if cfg.SyncInterval != 24*time.Hour {
		t.Fatalf("unexpected sync interval %v", cfg.SyncInterval)
	}
	if cfg.RankInterval != time.Hour {
		t.Fatalf("unexpected rank interval %v", cfg.RankInterval)
	}
	if !cfg.SchedulerEnabled {
		t.Fatal("expected scheduler enabled by default")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	v := NewViper()
	v.Set("fetch.timeout_seconds", 0)
	if _, err := Load(v); err == nil {
		t.Fatal("expected error for zero fetch timeout")
	}

	v = NewViper()
	v.Set("database.path", "  ")
	if _, err := Load(v); err == nil {
		t.Fatal("expected error for blank database path")
	}

	v = NewViper()
	v.Set("rank.interval_minutes", -5)
	if _, err := Load(v); err == nil {
		t.Fatal("expected error for negative rank interval")
	}
}
