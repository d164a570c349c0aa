// Package config loads the server's settings from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"liveqa/internal/db"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the listen address. When unset, PORT is used as ":PORT".
	Addr string `mapstructure:"ADDR"`
	Port string `mapstructure:"PORT"`

	// DatabaseURL is the participant store DSN. Empty means participants
	// are kept in memory and lost on restart.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DatabaseDriver is "pgx" (Postgres) or "sqlite".
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`

	// NotifyToken is the bearer token the mutation layer presents to
	// POST /notify. Empty disables the endpoint.
	NotifyToken string `mapstructure:"NOTIFY_TOKEN"`

	// JWTSecret verifies HS256 access tokens on /ws and the SSE stream.
	// Empty means client-claimed user ids are trusted.
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	OutboxSize      int    `mapstructure:"OUTBOX_SIZE"`
	PingInterval    string `mapstructure:"PING_INTERVAL"`
	PresenceTimeout string `mapstructure:"PRESENCE_TIMEOUT"`
	CacheSize       int    `mapstructure:"CACHE_SIZE"`

	// RestrictedContent sends unapproved questions and inactive polls only
	// to their author and the event owner.
	RestrictedContent bool `mapstructure:"RESTRICTED_CONTENT"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	// OTLPEndpoint enables metric export when set (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("ADDR", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DATABASE_DRIVER", db.DriverPostgres)
	v.SetDefault("NOTIFY_TOKEN", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")
	v.SetDefault("OUTBOX_SIZE", 32)
	v.SetDefault("PING_INTERVAL", "15s")
	v.SetDefault("PRESENCE_TIMEOUT", "3s")
	v.SetDefault("CACHE_SIZE", 4096)
	v.SetDefault("RESTRICTED_CONTENT", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		if cfg.Port == "" {
			return nil, errors.New("config: ADDR or PORT must be set")
		}
		cfg.Addr = ":" + cfg.Port
	}
	switch cfg.DatabaseDriver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return nil, fmt.Errorf("config: DATABASE_DRIVER must be %q or %q", db.DriverPostgres, db.DriverSQLite)
	}
	if cfg.OutboxSize <= 0 {
		return nil, errors.New("config: OUTBOX_SIZE must be positive")
	}
	if _, err := cfg.parseLevel(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Ping parses PingInterval. Returns 15s if unset or invalid.
func (c *Config) Ping() time.Duration {
	return parseDuration(c.PingInterval, 15*time.Second)
}

// Presence parses PresenceTimeout. Returns 3s if unset or invalid.
func (c *Config) Presence() time.Duration {
	return parseDuration(c.PresenceTimeout, 3*time.Second)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() slog.Level {
	l, _ := c.parseLevel()
	return l
}

func (c *Config) parseLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return l, nil
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
