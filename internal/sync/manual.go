// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitalsync/vitalsync/internal/logging"
	"github.com/vitalsync/vitalsync/internal/models"
)

// ErrNoConnections is returned by ManualSync when the user has no
// connection matching the request.
var ErrNoConnections = errors.New("no matching connections")

// ManualSync runs the scheduled-sync path outside the schedule for one of a
// user's connections (provider given) or all of them (provider empty).
// Disabled connections are reported, not synced: a connection disabled by
// an auth failure needs re-authorization first.
//
// Each connection goes through the same Sync path as a sweep, so
// single-flight, merge, and retry-queue guarantees all hold. Connections
// are processed sequentially; a manual trigger is a small, user-scoped
// operation.
func (o *Orchestrator) ManualSync(ctx context.Context, userID string, prov models.Provider) ([]models.SyncResult, error) {
	conns, err := o.conns.ListUserConnections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections for user %s: %w", userID, err)
	}

	var results []models.SyncResult
	for i := range conns {
		conn := &conns[i]
		if prov != "" && conn.Provider != prov {
			continue
		}
		if !conn.SyncEnabled {
			results = append(results, models.SyncResult{
				ConnectionID: conn.ID,
				UserID:       conn.UserID,
				Provider:     conn.Provider,
				Errors:       []string{"connection is disabled: re-authorization required"},
			})
			continue
		}

		logging.Info().Str("connection", conn.ID).Str("provider", conn.Provider.String()).Msg("Manual sync triggered")
		results = append(results, *o.Sync(ctx, conn))
	}

	if len(results) == 0 {
		if prov != "" {
			return nil, fmt.Errorf("user %s has no %s connection: %w", userID, prov, ErrNoConnections)
		}
		return nil, fmt.Errorf("user %s: %w", userID, ErrNoConnections)
	}
	return results, nil
}
