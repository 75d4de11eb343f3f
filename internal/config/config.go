// Package config provides application configuration loaded from environment
// variables, plus the per-controller risk parameters read from a YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        // e.g. "8080"
	Env             string        // "development" | "production"
	LogLevel        slog.Level    // default info
	ReadTimeout     time.Duration // default 10s
	WriteTimeout    time.Duration // default 10s
	ShutdownTimeout time.Duration // default 5s
	AllowedOrigins  []string      // WebSocket/CORS origins; empty allows any
}

// StoreConfig holds indexer database and cache settings.
type StoreConfig struct {
	DatabaseURL string        // empty selects the in-memory store
	RedisURL    string        // empty disables the cache
	CacheTTL    time.Duration // default 5s; keep below FeedInterval
}

// FeedConfig holds live feed settings.
type FeedConfig struct {
	Interval time.Duration // default 15s
}

// Config is the root configuration object.
type Config struct {
	Server          ServerConfig
	Store           StoreConfig
	Feed            FeedConfig
	ControllersFile string
	Controllers     Registry
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and
// valid. Every problem is reported, not just the first.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.IsProd() && c.Store.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL must be set in production"))
	}
	if c.IsProd() && c.ControllersFile == "" {
		errs = append(errs, errors.New("CONTROLLERS_FILE must be set in production"))
	}
	if c.Feed.Interval <= 0 {
		errs = append(errs, fmt.Errorf("FEED_INTERVAL must be positive, got %s", c.Feed.Interval))
	}
	if c.Store.RedisURL != "" && c.Store.CacheTTL >= c.Feed.Interval {
		errs = append(errs, fmt.Errorf(
			"CACHE_TTL (%s) must be shorter than FEED_INTERVAL (%s)",
			c.Store.CacheTTL, c.Feed.Interval,
		))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Load reads configuration from the environment and, when CONTROLLERS_FILE
// is set, the controller registry. The result is validated.
func Load() (*Config, error) {
	level, err := getLevel("LOG_LEVEL", slog.LevelInfo)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Env:             getEnv("ENVIRONMENT", "development"),
			LogLevel:        level,
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
			AllowedOrigins:  getList("ALLOWED_ORIGINS"),
		},
		Store: StoreConfig{
			DatabaseURL: getEnv("DATABASE_URL", ""),
			RedisURL:    getEnv("REDIS_URL", ""),
			CacheTTL:    getDuration("CACHE_TTL", 5*time.Second),
		},
		Feed: FeedConfig{
			Interval: getDuration("FEED_INTERVAL", 15*time.Second),
		},
		ControllersFile: getEnv("CONTROLLERS_FILE", ""),
		Controllers:     Registry{},
	}

	if cfg.ControllersFile != "" {
		reg, err := LoadControllers(cfg.ControllersFile)
		if err != nil {
			return nil, err
		}
		cfg.Controllers = reg
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Env helpers
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// getList splits a comma-separated value, dropping empty entries.
func getList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getDuration falls back on a missing or unparsable value.
func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getLevel(key string, fallback slog.Level) (slog.Level, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return fallback, err
	}
	return level, nil
}
