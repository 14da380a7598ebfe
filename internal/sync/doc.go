// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

// Package sync implements the health-data synchronization engine: the
// scheduler that sweeps due connections on an interval, the orchestrator
// that pulls one connection's window from its provider adapter, the merge
// policy that folds provider fragments into one canonical daily record,
// and the retry policy over the durable failed-sync backlog.
//
// Data flow per tick:
//
//	scheduler -> registry (due connections) -> orchestrator per connection
//	          -> adapter calls per day -> merge -> daily_stats upsert
//	failure   -> classified -> retry queue / disabled connection
//	          -> retry drain re-runs the orchestrator on claimed items
//
// Concurrency model: connections sync concurrently up to the worker-pool
// bound; one connection is never synced twice at once (single-flight per
// connection plus the retry queue's processing claim); merges for the same
// (user, date) are linearized by the stats store.
package sync
