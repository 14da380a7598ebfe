// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load() and safe for concurrent read access.
type Config struct {
	Providers ProvidersConfig `koanf:"providers"`
	Database  DatabaseConfig  `koanf:"database"`
	Sync      SyncConfig      `koanf:"sync"`
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ProvidersConfig groups the per-platform adapter settings. Each
// provider ships disabled; operators opt in per platform.
type ProvidersConfig struct {
	AppleHealth ProviderConfig `koanf:"apple_health"`
	GoogleFit   ProviderConfig `koanf:"google_fit"`
	Fitbit      ProviderConfig `koanf:"fitbit"`
	Garmin      ProviderConfig `koanf:"garmin"`
	Whoop       ProviderConfig `koanf:"whoop"`
}

// ProviderConfig configures one upstream platform adapter.
type ProviderConfig struct {
	Enabled            bool          `koanf:"enabled"`
	BaseURL            string        `koanf:"base_url"`
	Timeout            time.Duration `koanf:"timeout"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute"`
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerCooldown    time.Duration `koanf:"breaker_cooldown"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// SyncConfig controls the scheduler and orchestrator.
type SyncConfig struct {
	Interval       time.Duration `koanf:"interval"`
	Lookback       time.Duration `koanf:"lookback"`
	Workers        int           `koanf:"workers"`
	AdapterTimeout time.Duration `koanf:"adapter_timeout"`
	ClaimBatchSize int           `koanf:"claim_batch_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// APIConfig holds request handling limits.
type APIConfig struct {
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	MaxLogPageSize  int           `koanf:"max_log_page_size"`
}

// LoggingConfig controls the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks configuration consistency. Called by Load() after all
// layers are merged; returns the first problem found.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must be >= 0, got %d", c.Database.Threads)
	}

	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive, got %s", c.Sync.Interval)
	}
	if c.Sync.Lookback <= 0 {
		return fmt.Errorf("sync.lookback must be positive, got %s", c.Sync.Lookback)
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be positive, got %d", c.Sync.Workers)
	}
	if c.Sync.AdapterTimeout <= 0 {
		return fmt.Errorf("sync.adapter_timeout must be positive, got %s", c.Sync.AdapterTimeout)
	}
	if c.Sync.ClaimBatchSize <= 0 {
		return fmt.Errorf("sync.claim_batch_size must be positive, got %d", c.Sync.ClaimBatchSize)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}

	if c.API.RateLimitReqs <= 0 {
		return fmt.Errorf("api.rate_limit_reqs must be positive, got %d", c.API.RateLimitReqs)
	}
	if c.API.MaxLogPageSize <= 0 {
		return fmt.Errorf("api.max_log_page_size must be positive, got %d", c.API.MaxLogPageSize)
	}

	for name, pc := range map[string]ProviderConfig{
		"apple_health": c.Providers.AppleHealth,
		"google_fit":   c.Providers.GoogleFit,
		"fitbit":       c.Providers.Fitbit,
		"garmin":       c.Providers.Garmin,
		"whoop":        c.Providers.Whoop,
	} {
		if err := validateProvider(name, pc); err != nil {
			return err
		}
	}

	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace/debug/info/warn/error/fatal, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	return nil
}

func validateProvider(name string, pc ProviderConfig) error {
	if !pc.Enabled {
		return nil
	}
	if pc.BaseURL == "" {
		return fmt.Errorf("providers.%s.base_url is required when enabled", name)
	}
	u, err := url.Parse(pc.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("providers.%s.base_url is not a valid URL: %q", name, pc.BaseURL)
	}
	if pc.Timeout <= 0 {
		return fmt.Errorf("providers.%s.timeout must be positive, got %s", name, pc.Timeout)
	}
	if pc.RateLimitPerMinute <= 0 {
		return fmt.Errorf("providers.%s.rate_limit_per_minute must be positive, got %d", name, pc.RateLimitPerMinute)
	}
	return nil
}
