// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

// Package main is the entry point for the VitalSync server.
//
// VitalSync periodically pulls health and fitness metrics (steps,
// calories, sleep, heart rate, weight) from wearable platforms, merges
// them into one canonical record per user per day, and serves the
// result over a REST API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered loading (defaults < file < env)
//  2. Database: DuckDB for connections, merged stats, and the retry queue
//  3. Provider Registry: one REST adapter per enabled platform
//  4. Orchestrator: per-connection sync with failure classification
//  5. Scheduler: periodic sweep of due connections plus retry drain
//  6. Supervisor Tree: suture keeps scheduler and HTTP server alive
//  7. HTTP Server: connection management, manual sync, read endpoints
//
// # Configuration
//
// Configuration is loaded via Koanf v2 (highest priority wins):
//   - Environment variables (FITBIT_ENABLED, SYNC_INTERVAL, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Enable a platform by pointing it at its export API:
//
//	export FITBIT_ENABLED=true
//	export FITBIT_BASE_URL=https://api.fitbit.com
//	./vitalsync
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the scheduler finishes
// in-flight syncs, the HTTP server drains connections (10s timeout),
// and the database closes last.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitalsync/vitalsync/internal/api"
	"github.com/vitalsync/vitalsync/internal/config"
	"github.com/vitalsync/vitalsync/internal/database"
	"github.com/vitalsync/vitalsync/internal/logging"
	"github.com/vitalsync/vitalsync/internal/models"
	"github.com/vitalsync/vitalsync/internal/provider"
	"github.com/vitalsync/vitalsync/internal/provider/rest"
	"github.com/vitalsync/vitalsync/internal/supervisor"
	"github.com/vitalsync/vitalsync/internal/supervisor/services"
	syncengine "github.com/vitalsync/vitalsync/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Dur("sync_interval", cfg.Sync.Interval).
		Msg("Starting VitalSync")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	registry, err := buildRegistry(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build provider registry")
	}
	if len(registry.Providers()) == 0 {
		logging.Warn().Msg("No providers enabled; scheduler will sweep but nothing can sync")
	} else {
		logging.Info().Strs("providers", providerNames(registry)).Msg("Provider adapters registered")
	}

	orc := syncengine.NewOrchestrator(db, db, db, db, registry, syncengine.OrchestratorConfig{
		AdapterTimeout: cfg.Sync.AdapterTimeout,
		Lookback:       cfg.Sync.Lookback,
	}, nil)

	scheduler := syncengine.NewScheduler(orc, db, db, db, syncengine.SchedulerConfig{
		Interval:       cfg.Sync.Interval,
		Workers:        int64(cfg.Sync.Workers),
		ClaimBatchSize: cfg.Sync.ClaimBatchSize,
	}, nil)

	handlers := api.NewHandlers(db, orc, cfg.API)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSyncService(services.NewSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree serving")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("Shutdown complete")
}

// buildRegistry registers one REST adapter per enabled provider.
func buildRegistry(cfg *config.Config) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	for _, p := range models.KnownProviders {
		pc := cfg.Providers.Provider(string(p))
		if !pc.Enabled {
			continue
		}
		if err := registry.Register(rest.NewAdapter(p, pc)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func providerNames(r *provider.Registry) []string {
	provs := r.Providers()
	names := make([]string, len(provs))
	for i, p := range provs {
		names[i] = string(p)
	}
	return names
}
