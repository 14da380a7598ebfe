// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package database

import "fmt"

// initSchema creates the five record kinds if they don't exist.
func (db *DB) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS connections (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			provider VARCHAR NOT NULL,
			access_credential VARCHAR NOT NULL,
			sync_enabled BOOLEAN NOT NULL DEFAULT true,
			sync_frequency_hours INTEGER NOT NULL DEFAULT 4,
			last_sync_at TIMESTAMP,
			provider_metadata VARCHAR,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, provider)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_stats (
			user_id VARCHAR NOT NULL,
			date DATE NOT NULL,
			steps INTEGER,
			active_calories INTEGER,
			total_calories INTEGER,
			distance_meters DOUBLE,
			active_minutes INTEGER,
			sleep_minutes INTEGER,
			resting_heart_rate INTEGER,
			weight_kg DOUBLE,
			vo2_max DOUBLE,
			resting_heart_rate_at TIMESTAMP,
			weight_at TIMESTAMP,
			vo2_max_at TIMESTAMP,
			data_sources VARCHAR NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS retry_queue (
			id VARCHAR PRIMARY KEY,
			connection_id VARCHAR NOT NULL,
			provider VARCHAR NOT NULL,
			window_start TIMESTAMP NOT NULL,
			window_end TIMESTAMP NOT NULL,
			status VARCHAR NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error VARCHAR,
			next_retry_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sync_log (
			id VARCHAR PRIMARY KEY,
			connection_id VARCHAR NOT NULL,
			user_id VARCHAR NOT NULL,
			provider VARCHAR NOT NULL,
			window_start TIMESTAMP NOT NULL,
			window_end TIMESTAMP NOT NULL,
			records_synced INTEGER NOT NULL DEFAULT 0,
			status VARCHAR NOT NULL,
			error VARCHAR,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS heart_rate_samples (
			user_id VARCHAR NOT NULL,
			recorded_at TIMESTAMP NOT NULL,
			bpm INTEGER NOT NULL,
			source VARCHAR NOT NULL,
			PRIMARY KEY (user_id, recorded_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_retry_queue_due ON retry_queue (status, next_retry_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_log_user ON sync_log (user_id, started_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
