package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.DatabaseDriver != "pgx" {
		t.Errorf("DatabaseDriver = %q, want %q", cfg.DatabaseDriver, "pgx")
	}
	if cfg.OutboxSize != 32 {
		t.Errorf("OutboxSize = %d, want 32", cfg.OutboxSize)
	}
	if cfg.Ping() != 15*time.Second {
		t.Errorf("Ping() = %v, want 15s", cfg.Ping())
	}
	if cfg.Presence() != 3*time.Second {
		t.Errorf("Presence() = %v, want 3s", cfg.Presence())
	}
	if cfg.RestrictedContent {
		t.Error("RestrictedContent should default to false")
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level() = %v, want INFO", cfg.Level())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("PORT", "9090")
	os.Setenv("DATABASE_DRIVER", "sqlite")
	os.Setenv("RESTRICTED_CONTENT", "true")
	os.Setenv("PING_INTERVAL", "5s")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":9090")
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Errorf("DatabaseDriver = %q, want %q", cfg.DatabaseDriver, "sqlite")
	}
	if !cfg.RestrictedContent {
		t.Error("RestrictedContent = false, want true")
	}
	if cfg.Ping() != 5*time.Second {
		t.Errorf("Ping() = %v, want 5s", cfg.Ping())
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level() = %v, want DEBUG", cfg.Level())
	}
}

func TestLoad_AddrWinsOverPort(t *testing.T) {
	os.Clearenv()
	os.Setenv("ADDR", "127.0.0.1:7000")
	os.Setenv("PORT", "9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:7000" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, "127.0.0.1:7000")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"driver", "DATABASE_DRIVER", "mysql"},
		{"outbox", "OUTBOX_SIZE", "0"},
		{"log level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%q: want error", tt.key, tt.val)
			}
		})
	}
}

func TestDurations_FallBackOnGarbage(t *testing.T) {
	cfg := &Config{PingInterval: "soon", PresenceTimeout: "-1s"}
	if cfg.Ping() != 15*time.Second {
		t.Errorf("Ping() = %v, want 15s", cfg.Ping())
	}
	if cfg.Presence() != 3*time.Second {
		t.Errorf("Presence() = %v, want 3s", cfg.Presence())
	}
}
