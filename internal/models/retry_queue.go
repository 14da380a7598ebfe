// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package models

import "time"

// RetryStatus is the lifecycle state of a retry queue item.
type RetryStatus string

const (
	// RetryStatusPending means the item is waiting for its NextRetryAt.
	RetryStatusPending RetryStatus = "pending"
	// RetryStatusProcessing means a drain has claimed the item. The
	// pending->processing transition is atomic and acts as the
	// mutual-exclusion claim between concurrent drains.
	RetryStatusProcessing RetryStatus = "processing"
	// RetryStatusFailed is terminal: the attempt cap was reached (or the
	// failure class does not retry). Failed items are never claimed again.
	RetryStatusFailed RetryStatus = "failed"
)

// RetryQueueItem is one durable failed-sync backlog entry.
// RetryCount is monotonically non-decreasing; once it reaches the attempt
// cap the item transitions to failed permanently.
type RetryQueueItem struct {
	ID           string      `json:"id"`
	ConnectionID string      `json:"connection_id"`
	Provider     Provider    `json:"provider"`
	WindowStart  time.Time   `json:"window_start"`
	WindowEnd    time.Time   `json:"window_end"`
	Status       RetryStatus `json:"status"`
	RetryCount   int         `json:"retry_count"`
	LastError    string      `json:"last_error"`
	NextRetryAt  time.Time   `json:"next_retry_at"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
