// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vitalsync/vitalsync/internal/models"
)

const retryQueueColumns = `id, connection_id, provider, window_start, window_end,
	status, retry_count, last_error, next_retry_at, created_at, updated_at`

// Enqueue inserts a pending retry item.
func (db *DB) Enqueue(ctx context.Context, item *models.RetryQueueItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO retry_queue (`+retryQueueColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ConnectionID, string(item.Provider),
		item.WindowStart.UTC(), item.WindowEnd.UTC(),
		string(item.Status), item.RetryCount, item.LastError,
		item.NextRetryAt.UTC(), item.CreatedAt.UTC(), item.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("enqueue retry item: %w", err)
	}
	return nil
}

// ClaimDue atomically flips up to limit due pending items to processing
// and returns them. Two concurrent drains never claim the same item:
// the transition happens in a single UPDATE ... RETURNING.
func (db *DB) ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.RetryQueueItem, error) {
	rows, err := db.conn.QueryContext(ctx, `
		UPDATE retry_queue SET status = 'processing', updated_at = ?
		WHERE id IN (
			SELECT id FROM retry_queue
			WHERE status = 'pending' AND next_retry_at <= ?
			ORDER BY next_retry_at
			LIMIT ?
		)
		RETURNING `+retryQueueColumns,
		now.UTC(), now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("claim due retry items: %w", err)
	}
	defer rows.Close()

	var out []models.RetryQueueItem
	for rows.Next() {
		item, err := scanRetryItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// Complete deletes a succeeded item. Success leaves no queue row behind;
// the sync log is the durable record of the attempt.
func (db *DB) Complete(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM retry_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete retry item %s: %w", id, err)
	}
	return nil
}

// Reschedule returns a claimed item to pending with the caller-computed
// attempt count and next due time. Backoff policy belongs to the sync
// package; the queue only records its decisions.
func (db *DB) Reschedule(ctx context.Context, id string, lastErr string, retryCount int, nextRetryAt time.Time) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE retry_queue
		SET status = 'pending', retry_count = ?, last_error = ?, next_retry_at = ?, updated_at = ?
		WHERE id = ?`,
		retryCount, lastErr, nextRetryAt.UTC(), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reschedule retry item %s: %w", id, err)
	}
	return nil
}

// MarkFailed flags an item as permanently failed, recording the attempt
// count that exhausted it. Failed rows are kept for operator inspection
// rather than deleted.
func (db *DB) MarkFailed(ctx context.Context, id string, lastErr string, retryCount int) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE retry_queue
		SET status = 'failed', retry_count = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		retryCount, lastErr, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark retry item failed %s: %w", id, err)
	}
	return nil
}

// CountPending reports the current pending backlog.
func (db *DB) CountPending(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM retry_queue WHERE status = 'pending'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending retry items: %w", err)
	}
	return n, nil
}

func scanRetryItem(row rowScanner) (*models.RetryQueueItem, error) {
	var item models.RetryQueueItem
	var prov, status string
	err := row.Scan(&item.ID, &item.ConnectionID, &prov, &item.WindowStart, &item.WindowEnd,
		&status, &item.RetryCount, &item.LastError, &item.NextRetryAt,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan retry item: %w", err)
	}
	item.Provider = models.Provider(prov)
	item.Status = models.RetryStatus(status)
	return &item, nil
}
