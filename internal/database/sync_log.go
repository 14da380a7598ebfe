// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vitalsync/vitalsync/internal/models"
)

const syncLogColumns = `id, connection_id, user_id, provider, window_start, window_end,
	records_synced, status, error, started_at, finished_at`

// Append records one sync attempt's outcome in the audit log.
func (db *DB) Append(ctx context.Context, e *models.SyncLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sync_log (`+syncLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ConnectionID, e.UserID, string(e.Provider),
		e.WindowStart.UTC(), e.WindowEnd.UTC(),
		e.RecordsSynced, string(e.Status), e.Error,
		e.StartedAt.UTC(), e.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("append sync log: %w", err)
	}
	return nil
}

// ListSyncLog returns a user's most recent sync attempts, newest first.
func (db *DB) ListSyncLog(ctx context.Context, userID string, limit int) ([]models.SyncLogEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+syncLogColumns+`
		FROM sync_log
		WHERE user_id = ?
		ORDER BY started_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync log: %w", err)
	}
	defer rows.Close()

	var out []models.SyncLogEntry
	for rows.Next() {
		var e models.SyncLogEntry
		var prov, status string
		if err := rows.Scan(&e.ID, &e.ConnectionID, &e.UserID, &prov,
			&e.WindowStart, &e.WindowEnd, &e.RecordsSynced, &status, &e.Error,
			&e.StartedAt, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		e.Provider = models.Provider(prov)
		e.Status = models.SyncLogStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}
