// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package sync

import "time"

const (
	// MaxRetryAttempts caps transient-failure retries. Once an item's
	// retry_count reaches this value its status becomes failed permanently.
	MaxRetryAttempts = 3

	// RateLimitDelay is the fixed requeue delay for provider quota
	// rejections, matching a typical quota window rather than the
	// transient backoff curve.
	RateLimitDelay = 60 * time.Minute

	maxBackoff = 8 * time.Minute
)

// Backoff returns the exponential retry delay for a given retry count:
// 1, 2, 4, 8 minutes for counts 0-3, capped at 8 minutes thereafter.
func Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount >= 3 {
		return maxBackoff
	}
	return time.Duration(1<<uint(retryCount)) * time.Minute
}
