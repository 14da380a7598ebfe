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

	"github.com/vitalsync/vitalsync/internal/models"
	syncengine "github.com/vitalsync/vitalsync/internal/sync"
)

const dailyStatsColumns = `user_id, date, steps, active_calories, total_calories,
	distance_meters, active_minutes, sleep_minutes, resting_heart_rate, weight_kg, vo2_max,
	resting_heart_rate_at, weight_at, vo2_max_at, data_sources, updated_at`

// MergeDailyStats folds one provider's partial into the canonical record
// for (userID, partial.Date) as a single atomic upsert. The per-key lock
// linearizes concurrent merges from different providers into the same day;
// the merge policy itself lives in internal/sync and stays pure.
func (db *DB) MergeDailyStats(ctx context.Context, userID string, p models.Provider, partial *models.PartialDailyStats) error {
	date := partial.Date.UTC().Format("2006-01-02")
	mu := db.acquireDayLock(userID + "|" + date)
	defer mu.Unlock()

	existing, err := db.GetDailyStats(ctx, userID, partial.Date)
	if err != nil {
		return fmt.Errorf("load daily stats %s/%s: %w", userID, date, err)
	}

	merged := syncengine.Merge(existing, partial, p)
	merged.UserID = userID
	merged.UpdatedAt = time.Now().UTC()

	sources, err := json.Marshal(merged.DataSources)
	if err != nil {
		return fmt.Errorf("marshal data sources: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO daily_stats (`+dailyStatsColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, date) DO UPDATE SET
			steps = EXCLUDED.steps,
			active_calories = EXCLUDED.active_calories,
			total_calories = EXCLUDED.total_calories,
			distance_meters = EXCLUDED.distance_meters,
			active_minutes = EXCLUDED.active_minutes,
			sleep_minutes = EXCLUDED.sleep_minutes,
			resting_heart_rate = EXCLUDED.resting_heart_rate,
			weight_kg = EXCLUDED.weight_kg,
			vo2_max = EXCLUDED.vo2_max,
			resting_heart_rate_at = EXCLUDED.resting_heart_rate_at,
			weight_at = EXCLUDED.weight_at,
			vo2_max_at = EXCLUDED.vo2_max_at,
			data_sources = EXCLUDED.data_sources,
			updated_at = EXCLUDED.updated_at`,
		merged.UserID, merged.Date.UTC(), merged.Steps, merged.ActiveCalories, merged.TotalCalories,
		merged.DistanceMeters, merged.ActiveMinutes, merged.SleepMinutes, merged.RestingHeartRate,
		merged.WeightKg, merged.VO2Max, merged.RestingHeartRateAt, merged.WeightAt, merged.VO2MaxAt,
		string(sources), merged.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert daily stats %s/%s: %w", userID, date, err)
	}
	return nil
}

// GetDailyStats fetches one merged record. Returns (nil, nil) when no
// provider has contributed to that day yet.
func (db *DB) GetDailyStats(ctx context.Context, userID string, date time.Time) (*models.DailyStats, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT `+dailyStatsColumns+`
		FROM daily_stats WHERE user_id = ? AND date = ?`,
		userID, date.UTC().Format("2006-01-02"))

	var d models.DailyStats
	var sources string
	err := row.Scan(&d.UserID, &d.Date, &d.Steps, &d.ActiveCalories, &d.TotalCalories,
		&d.DistanceMeters, &d.ActiveMinutes, &d.SleepMinutes, &d.RestingHeartRate,
		&d.WeightKg, &d.VO2Max, &d.RestingHeartRateAt, &d.WeightAt, &d.VO2MaxAt,
		&sources, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan daily stats: %w", err)
	}

	if err := json.Unmarshal([]byte(sources), &d.DataSources); err != nil {
		return nil, fmt.Errorf("unmarshal data sources: %w", err)
	}
	d.Date = d.Date.UTC()
	return &d, nil
}

// ListDailyStats returns a user's merged records within [from, to]
// inclusive, ascending by date.
func (db *DB) ListDailyStats(ctx context.Context, userID string, from, to time.Time) ([]models.DailyStats, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+dailyStatsColumns+`
		FROM daily_stats
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		userID, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("list daily stats: %w", err)
	}
	defer rows.Close()

	var out []models.DailyStats
	for rows.Next() {
		var d models.DailyStats
		var sources string
		if err := rows.Scan(&d.UserID, &d.Date, &d.Steps, &d.ActiveCalories, &d.TotalCalories,
			&d.DistanceMeters, &d.ActiveMinutes, &d.SleepMinutes, &d.RestingHeartRate,
			&d.WeightKg, &d.VO2Max, &d.RestingHeartRateAt, &d.WeightAt, &d.VO2MaxAt,
			&sources, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan daily stats: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &d.DataSources); err != nil {
			return nil, fmt.Errorf("unmarshal data sources: %w", err)
		}
		d.Date = d.Date.UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}
