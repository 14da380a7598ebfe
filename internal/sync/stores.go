// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package sync

import (
	"context"
	"time"

	"github.com/vitalsync/vitalsync/internal/models"
)

// ConnectionStore is the connection registry contract. Implemented by
// internal/database. MarkSynced and Disable are single-row updates and must
// be idempotent.
type ConnectionStore interface {
	// ListDueConnections returns all enabled connections whose last sync
	// is at least sync_frequency_hours old. A null last_sync_at is always
	// due.
	ListDueConnections(ctx context.Context, now time.Time) ([]models.Connection, error)

	// ListUserConnections returns all of one user's connections,
	// enabled or not.
	ListUserConnections(ctx context.Context, userID string) ([]models.Connection, error)

	// GetConnection fetches one connection by ID, nil if absent.
	GetConnection(ctx context.Context, id string) (*models.Connection, error)

	// MarkSynced sets last_sync_at.
	MarkSynced(ctx context.Context, connectionID string, at time.Time) error

	// Disable sets sync_enabled to false.
	Disable(ctx context.Context, connectionID string) error
}

// StatsStore persists merged daily records and heart rate series.
type StatsStore interface {
	// MergeDailyStats folds one provider's partial into the canonical
	// record for (userID, partial.Date) as a single atomic upsert.
	// Concurrent merges for the same key are linearized by the store.
	MergeDailyStats(ctx context.Context, userID string, p models.Provider, partial *models.PartialDailyStats) error

	// InsertHeartRateSamples appends fine-grained samples, ignoring
	// duplicates on (user_id, recorded_at).
	InsertHeartRateSamples(ctx context.Context, samples []models.HeartRateSample) error
}

// RetryQueue is the durable failed-sync backlog. ClaimDue's
// pending->processing transition is atomic and is the only mutual
// exclusion the row set needs.
type RetryQueue interface {
	Enqueue(ctx context.Context, item *models.RetryQueueItem) error

	// ClaimDue atomically transitions up to limit pending items with
	// next_retry_at <= now to processing and returns them.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]models.RetryQueueItem, error)

	// Complete removes a claimed item whose retry succeeded.
	Complete(ctx context.Context, id string) error

	// Reschedule returns a claimed item to pending with an updated retry
	// count and next attempt time. retryCount must never decrease.
	Reschedule(ctx context.Context, id, lastError string, retryCount int, nextRetryAt time.Time) error

	// MarkFailed transitions an item to the terminal failed status,
	// persisting the final attempt count.
	MarkFailed(ctx context.Context, id, lastError string, retryCount int) error

	// CountPending returns the number of pending items, for gauges.
	CountPending(ctx context.Context) (int, error)
}

// SyncLog is the append-only audit of sync attempts.
type SyncLog interface {
	Append(ctx context.Context, entry *models.SyncLogEntry) error
}
