// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package models

import "time"

// Connection links one user to one external health platform.
// At most one Connection exists per (user, provider) pair; the database
// enforces this with a unique constraint.
//
// Mutation discipline:
//   - The orchestrator advances LastSyncAt after a fully successful window.
//   - The auth-failure path flips SyncEnabled to false; nothing else does.
//   - A disabled connection is never selected by the scheduler, but remains
//     visible through the API so the owner can be prompted to re-authorize.
type Connection struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id"`
	Provider           Provider          `json:"provider"`
	AccessCredential   string            `json:"-"` // opaque, provider-specific; never serialized
	SyncEnabled        bool              `json:"sync_enabled"`
	SyncFrequencyHours int               `json:"sync_frequency_hours"`
	LastSyncAt         *time.Time        `json:"last_sync_at,omitempty"`
	ProviderMetadata   map[string]string `json:"provider_metadata,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// Due reports whether the connection is due for a scheduled sync at the
// given instant. A nil LastSyncAt is always due.
func (c *Connection) Due(now time.Time) bool {
	if !c.SyncEnabled {
		return false
	}
	if c.LastSyncAt == nil {
		return true
	}
	return now.Sub(*c.LastSyncAt) >= time.Duration(c.SyncFrequencyHours)*time.Hour
}
