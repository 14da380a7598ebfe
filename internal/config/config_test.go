// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantSub string
	}{
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"negative db threads", func(c *Config) { c.Database.Threads = -1 }, "database.threads"},
		{"zero sync interval", func(c *Config) { c.Sync.Interval = 0 }, "sync.interval"},
		{"zero lookback", func(c *Config) { c.Sync.Lookback = 0 }, "sync.lookback"},
		{"zero workers", func(c *Config) { c.Sync.Workers = 0 }, "sync.workers"},
		{"zero claim batch", func(c *Config) { c.Sync.ClaimBatchSize = 0 }, "sync.claim_batch_size"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"zero rate limit", func(c *Config) { c.API.RateLimitReqs = 0 }, "api.rate_limit_reqs"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{
			"enabled provider without base URL",
			func(c *Config) { c.Providers.Fitbit.Enabled = true },
			"providers.fitbit.base_url",
		},
		{
			"enabled provider with junk base URL",
			func(c *Config) {
				c.Providers.Garmin.Enabled = true
				c.Providers.Garmin.BaseURL = "not a url"
			},
			"providers.garmin.base_url",
		},
		{
			"enabled provider with zero rate limit",
			func(c *Config) {
				c.Providers.Whoop.Enabled = true
				c.Providers.Whoop.BaseURL = "https://api.example.com"
				c.Providers.Whoop.RateLimitPerMinute = 0
			},
			"providers.whoop.rate_limit_per_minute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate accepted invalid config")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidateDisabledProviderSkipsChecks(t *testing.T) {
	cfg := defaultConfig()
	// A disabled provider may be entirely unconfigured.
	cfg.Providers.Fitbit = ProviderConfig{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled provider tripped validation: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"FITBIT_ENABLED", "providers.fitbit.enabled"},
		{"FITBIT_BASE_URL", "providers.fitbit.base_url"},
		{"APPLE_HEALTH_RATE_LIMIT", "providers.apple_health.rate_limit_per_minute"},
		{"DUCKDB_PATH", "database.path"},
		{"SYNC_INTERVAL", "sync.interval"},
		{"SYNC_WORKERS", "sync.workers"},
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""}, // unrelated environment noise is skipped
		{"HOSTNAME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestProvidersAccessor(t *testing.T) {
	cfg := defaultConfig()
	cfg.Providers.Garmin.Enabled = true
	cfg.Providers.Garmin.BaseURL = "https://garmin.example.com"

	got := cfg.Providers.Provider("garmin")
	if !got.Enabled || got.BaseURL != "https://garmin.example.com" {
		t.Errorf("Provider(garmin) = %+v", got)
	}
	if got := cfg.Providers.Provider("pebble"); got.Enabled {
		t.Errorf("unknown provider name returned an enabled config: %+v", got)
	}
}

func TestDefaultTunables(t *testing.T) {
	cfg := defaultConfig()
	if cfg.Sync.Interval != 4*time.Hour {
		t.Errorf("sync interval = %s, want 4h", cfg.Sync.Interval)
	}
	if cfg.Sync.Lookback != 7*24*time.Hour {
		t.Errorf("lookback = %s, want 168h", cfg.Sync.Lookback)
	}
	if cfg.Server.Port != 8486 {
		t.Errorf("port = %d, want 8486", cfg.Server.Port)
	}
	if cfg.Providers.Fitbit.Enabled {
		t.Error("providers must ship disabled")
	}
}
