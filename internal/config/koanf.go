// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/vitalsync/config.yaml",
	"/etc/vitalsync/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are
// the base layer; file and env values override them.
func defaultConfig() *Config {
	defaultProvider := ProviderConfig{
		Enabled:            false,
		BaseURL:            "",
		Timeout:            30 * time.Second,
		RateLimitPerMinute: 60,
		BreakerMaxFailures: 5,
		BreakerCooldown:    60 * time.Second,
	}
	return &Config{
		Providers: ProvidersConfig{
			AppleHealth: defaultProvider,
			GoogleFit:   defaultProvider,
			Fitbit:      defaultProvider,
			Garmin:      defaultProvider,
			Whoop:       defaultProvider,
		},
		Database: DatabaseConfig{
			Path:      "/data/vitalsync.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Sync: SyncConfig{
			Interval:       4 * time.Hour,
			Lookback:       7 * 24 * time.Hour,
			Workers:        4,
			AdapterTimeout: 30 * time.Second,
			ClaimBatchSize: 50,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8486,
			Timeout: 30 * time.Second,
		},
		API: APIConfig{
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
			MaxLogPageSize:  200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds configuration from layered sources with precedence
// ENV > file > defaults, then validates the result.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// FITBIT_BASE_URL -> providers.fitbit.base_url, SYNC_WORKERS -> sync.workers
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names onto koanf config
// paths. Unmapped variables return "" and are skipped so unrelated
// environment noise never leaks into the config.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Provider mappings
		"apple_health_enabled":    "providers.apple_health.enabled",
		"apple_health_base_url":   "providers.apple_health.base_url",
		"apple_health_timeout":    "providers.apple_health.timeout",
		"apple_health_rate_limit": "providers.apple_health.rate_limit_per_minute",
		"google_fit_enabled":      "providers.google_fit.enabled",
		"google_fit_base_url":     "providers.google_fit.base_url",
		"google_fit_timeout":      "providers.google_fit.timeout",
		"google_fit_rate_limit":   "providers.google_fit.rate_limit_per_minute",
		"fitbit_enabled":          "providers.fitbit.enabled",
		"fitbit_base_url":         "providers.fitbit.base_url",
		"fitbit_timeout":          "providers.fitbit.timeout",
		"fitbit_rate_limit":       "providers.fitbit.rate_limit_per_minute",
		"garmin_enabled":          "providers.garmin.enabled",
		"garmin_base_url":         "providers.garmin.base_url",
		"garmin_timeout":          "providers.garmin.timeout",
		"garmin_rate_limit":       "providers.garmin.rate_limit_per_minute",
		"whoop_enabled":           "providers.whoop.enabled",
		"whoop_base_url":          "providers.whoop.base_url",
		"whoop_timeout":           "providers.whoop.timeout",
		"whoop_rate_limit":        "providers.whoop.rate_limit_per_minute",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Sync mappings
		"sync_interval":         "sync.interval",
		"sync_lookback":         "sync.lookback",
		"sync_workers":          "sync.workers",
		"sync_adapter_timeout":  "sync.adapter_timeout",
		"sync_claim_batch_size": "sync.claim_batch_size",

		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// API mappings
		"api_rate_limit_requests": "api.rate_limit_reqs",
		"api_rate_limit_window":   "api.rate_limit_window",
		"api_max_log_page_size":   "api.max_log_page_size",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// Provider returns the ProviderConfig for one named platform section.
// Unknown names return a zero (disabled) config.
func (p *ProvidersConfig) Provider(name string) ProviderConfig {
	switch name {
	case "apple_health":
		return p.AppleHealth
	case "google_fit":
		return p.GoogleFit
	case "fitbit":
		return p.Fitbit
	case "garmin":
		return p.Garmin
	case "whoop":
		return p.Whoop
	}
	return ProviderConfig{}
}
