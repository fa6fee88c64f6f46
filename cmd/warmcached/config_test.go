package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warmcached.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cache.Name != "balance" || cfg.Cache.Frequency != time.Second {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Redis != nil || cfg.Kafka != nil {
		t.Error("redis and kafka should be disabled by default")
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
cache:
  name: savings
  frequency: 250ms
  max_consecutive_failures: 3
balance:
  principal: "2500.50"
  rate: 0.1
cron: "@every 1m"
trigger_rate: 2.5
redis:
  addr: "127.0.0.1:6380"
  key: settings
  channel: invalidations
kafka:
  consumer:
    brokers: "k1:9092,k2:9092"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Log.Level)
	}
	if cfg.Cache.Name != "savings" || cfg.Cache.Frequency != 250*time.Millisecond {
		t.Errorf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Cache.MaxConsecutiveFailures != 3 {
		t.Errorf("expected 3 consecutive failures, got %d", cfg.Cache.MaxConsecutiveFailures)
	}
	if cfg.Balance.Principal != "2500.50" || cfg.Balance.CompoundsPerYear != 1 {
		t.Errorf("unexpected balance config: %+v", cfg.Balance)
	}
	if cfg.Cron != "@every 1m" || cfg.TriggerRate != 2.5 {
		t.Errorf("unexpected trigger config: %q %v", cfg.Cron, cfg.TriggerRate)
	}

	if cfg.Redis == nil {
		t.Fatal("expected redis config")
	}
	if cfg.Redis.Addr != "127.0.0.1:6380" || cfg.Redis.Key != "settings" {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Redis.Frequency != 30*time.Second {
		t.Errorf("expected default redis frequency, got %v", cfg.Redis.Frequency)
	}

	if cfg.Kafka == nil || cfg.Kafka.Consumer == nil {
		t.Fatal("expected kafka consumer config")
	}
	if got := cfg.Kafka.Consumer.Brokers; len(got) != 2 || got[1] != "k2:9092" {
		t.Errorf("unexpected brokers: %v", got)
	}
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	path := writeConfig(t, "cache:\n  frequncy: 1s\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for a misspelled key")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "cache: [\n"},
		{"bad duration", "report_interval: soon\n"},
		{"redis without key", "redis:\n  addr: localhost:6379\n"},
		{"unknown kafka key", "kafka:\n  producer:\n    topik: caches\n"},
		{"negative rate", "trigger_rate: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
