// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vitalsync/vitalsync/internal/models"
)

const connectionColumns = `id, user_id, provider, access_credential, sync_enabled,
	sync_frequency_hours, last_sync_at, provider_metadata, created_at, updated_at`

// UpsertConnection creates or updates a connection, keyed by
// (user, provider). The (user, provider) pair stays unique; re-linking a
// provider replaces the credential and re-enables sync.
func (db *DB) UpsertConnection(ctx context.Context, conn *models.Connection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	meta, err := json.Marshal(conn.ProviderMetadata)
	if err != nil {
		return fmt.Errorf("marshal provider metadata: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO connections (`+connectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, provider) DO UPDATE SET
			access_credential = EXCLUDED.access_credential,
			sync_enabled = EXCLUDED.sync_enabled,
			sync_frequency_hours = EXCLUDED.sync_frequency_hours,
			provider_metadata = EXCLUDED.provider_metadata,
			updated_at = EXCLUDED.updated_at`,
		conn.ID, conn.UserID, string(conn.Provider), conn.AccessCredential, conn.SyncEnabled,
		conn.SyncFrequencyHours, conn.LastSyncAt, string(meta), conn.CreatedAt, conn.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert connection: %w", err)
	}
	return nil
}

// GetConnection fetches one connection by ID. Returns (nil, nil) when the
// connection does not exist.
func (db *DB) GetConnection(ctx context.Context, id string) (*models.Connection, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE id = ?`, id)
	conn, err := scanConnection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return conn, err
}

// ListDueConnections returns all enabled connections due for sync at the
// given instant: last_sync_at is null, or at least sync_frequency_hours
// old.
func (db *DB) ListDueConnections(ctx context.Context, now time.Time) ([]models.Connection, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+connectionColumns+`
		FROM connections
		WHERE sync_enabled = true
		  AND (last_sync_at IS NULL
		       OR epoch(CAST(? AS TIMESTAMP)) - epoch(last_sync_at) >= sync_frequency_hours * 3600)
		ORDER BY user_id, provider`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list due connections: %w", err)
	}
	defer rows.Close()
	return scanConnections(rows)
}

// ListUserConnections returns all of one user's connections, enabled or
// not, so the API can distinguish disabled-for-auth from merely due.
func (db *DB) ListUserConnections(ctx context.Context, userID string) ([]models.Connection, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+connectionColumns+` FROM connections WHERE user_id = ? ORDER BY provider`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user connections: %w", err)
	}
	defer rows.Close()
	return scanConnections(rows)
}

// MarkSynced sets last_sync_at. Idempotent single-row update.
func (db *DB) MarkSynced(ctx context.Context, connectionID string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE connections SET last_sync_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), connectionID)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// Disable flips sync_enabled off. Idempotent single-row update; the
// scheduler never selects a disabled connection again until the owner
// re-authorizes.
func (db *DB) Disable(ctx context.Context, connectionID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE connections SET sync_enabled = false, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), connectionID)
	if err != nil {
		return fmt.Errorf("disable connection: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*models.Connection, error) {
	var c models.Connection
	var provider, meta string
	var lastSync sql.NullTime

	err := row.Scan(&c.ID, &c.UserID, &provider, &c.AccessCredential, &c.SyncEnabled,
		&c.SyncFrequencyHours, &lastSync, &meta, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Provider = models.Provider(provider)
	if lastSync.Valid {
		t := lastSync.Time.UTC()
		c.LastSyncAt = &t
	}
	if meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &c.ProviderMetadata); err != nil {
			return nil, fmt.Errorf("unmarshal provider metadata: %w", err)
		}
	}
	return &c, nil
}

func scanConnections(rows *sql.Rows) ([]models.Connection, error) {
	var out []models.Connection
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
