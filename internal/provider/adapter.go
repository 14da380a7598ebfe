// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

// Package provider defines the adapter contract every external platform
// integration satisfies, the failure taxonomy the orchestrator branches on,
// and the capability registry adapters register with at startup.
package provider

import (
	"context"
	"time"

	"github.com/vitalsync/vitalsync/internal/models"
)

// Adapter is the contract one external platform integration implements.
// Implementations are best-effort: a day with no data returns a partial
// with all metric fields nil, not an error. Errors surface rate-limit and
// auth conditions distinctly (RateLimitError, AuthError) so the
// orchestrator can branch; everything else is treated as transient.
//
// Adapters must honor ctx cancellation and deadlines: the orchestrator
// bounds every call so a stalled provider blocks only its own connection.
type Adapter interface {
	// Provider returns the platform this adapter integrates.
	Provider() models.Provider

	// GetDailyStats fetches one calendar day of daily metrics for the
	// connection's user. The connection carries the opaque credential and
	// provider metadata the call needs.
	GetDailyStats(ctx context.Context, conn *models.Connection, date time.Time) (*models.PartialDailyStats, error)
}

// HeartRateSeriesProvider is an optional adapter capability: fine-grained
// heart rate samples for a whole window in one call. The orchestrator
// checks for it with a type assertion and skips it when absent.
type HeartRateSeriesProvider interface {
	GetHeartRateSeries(ctx context.Context, conn *models.Connection, start, end time.Time) ([]models.HeartRateSample, error)
}
