package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("server port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("storage driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Sync.Enabled {
		t.Error("sync enabled by default, want disabled")
	}
	if cfg.Sync.Interval != 15*time.Minute {
		t.Errorf("sync interval = %v, want 15m", cfg.Sync.Interval)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STOCKSYNC_SERVER_PORT", "9090")
	t.Setenv("STOCKSYNC_STORAGE_DRIVER", "postgres")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("server port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("storage driver = %q, want postgres", cfg.Storage.Driver)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Storage: StorageConfig{Driver: "sqlite", SQLitePath: "test.db", Host: "localhost", DBName: "db"},
			Sync:    SyncConfig{Interval: 15 * time.Minute},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := validate(base()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unknown driver fails", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Driver = "mysql"
		if err := validate(cfg); err == nil {
			t.Error("expected error for unknown driver")
		}
	})

	t.Run("sqlite without path fails", func(t *testing.T) {
		cfg := base()
		cfg.Storage.SQLitePath = ""
		if err := validate(cfg); err == nil {
			t.Error("expected error for missing sqlite path")
		}
	})

	t.Run("sub-minute sync interval fails", func(t *testing.T) {
		cfg := base()
		cfg.Sync.Enabled = true
		cfg.Sync.Endpoint = "http://localhost:9000"
		cfg.Sync.Interval = 5 * time.Second
		if err := validate(cfg); err == nil {
			t.Error("expected error for sub-minute interval")
		}
	})

	t.Run("kafka enabled without brokers fails", func(t *testing.T) {
		cfg := base()
		cfg.Kafka.Enabled = true
		cfg.Kafka.Brokers = nil
		if err := validate(cfg); err == nil {
			t.Error("expected error for missing brokers")
		}
	})
}
