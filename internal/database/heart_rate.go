// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/vitalsync/vitalsync/internal/models"
)

// InsertHeartRateSamples bulk-inserts intraday samples. Duplicate
// (user_id, recorded_at) pairs are silently skipped so re-syncing a
// window never doubles the series.
func (db *DB) InsertHeartRateSamples(ctx context.Context, samples []models.HeartRateSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin heart rate insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO heart_rate_samples (user_id, recorded_at, bpm, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, recorded_at) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare heart rate insert: %w", err)
	}
	defer stmt.Close()

	for i := range samples {
		s := &samples[i]
		if _, err := stmt.ExecContext(ctx, s.UserID, s.RecordedAt.UTC(), s.BPM, string(s.Source)); err != nil {
			return fmt.Errorf("insert heart rate sample: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit heart rate insert: %w", err)
	}
	return nil
}

// ListHeartRateSamples returns a user's samples within [start, end],
// ascending by time.
func (db *DB) ListHeartRateSamples(ctx context.Context, userID string, start, end time.Time) ([]models.HeartRateSample, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, recorded_at, bpm, source
		FROM heart_rate_samples
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at`,
		userID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("list heart rate samples: %w", err)
	}
	defer rows.Close()

	var out []models.HeartRateSample
	for rows.Next() {
		var s models.HeartRateSample
		var source string
		if err := rows.Scan(&s.UserID, &s.RecordedAt, &s.BPM, &source); err != nil {
			return nil, fmt.Errorf("scan heart rate sample: %w", err)
		}
		s.Source = models.Provider(source)
		out = append(out, s)
	}
	return out, rows.Err()
}
