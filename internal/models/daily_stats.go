// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package models

import (
	"sort"
	"time"
)

// DailyStats is the canonical merged health record for one (user, calendar
// date). Every metric is independently optional; a nil pointer means no
// provider has reported that metric for the day. Writes are always merges,
// never blind overwrites (see internal/sync merge policy).
//
// Counter metrics (steps, calories, distance, active/sleep minutes) hold
// whole-day totals and merge by maximum. Point-in-time metrics (resting
// heart rate, weight, VO2 max) merge by most-recent observation; their
// observation timestamps are tracked per field so that merges from
// providers with different pull latencies stay order-independent.
type DailyStats struct {
	UserID string    `json:"user_id"`
	Date   time.Time `json:"date"` // midnight UTC, date component only

	// Whole-day counters.
	Steps          *int     `json:"steps,omitempty"`
	ActiveCalories *int     `json:"active_calories,omitempty"`
	TotalCalories  *int     `json:"total_calories,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	ActiveMinutes  *int     `json:"active_minutes,omitempty"`
	SleepMinutes   *int     `json:"sleep_minutes,omitempty"`

	// Point-in-time observations.
	RestingHeartRate *int     `json:"resting_heart_rate,omitempty"`
	WeightKg         *float64 `json:"weight_kg,omitempty"`
	VO2Max           *float64 `json:"vo2_max,omitempty"`

	// Observation timestamps for the point-in-time fields above.
	RestingHeartRateAt *time.Time `json:"resting_heart_rate_at,omitempty"`
	WeightAt           *time.Time `json:"weight_at,omitempty"`
	VO2MaxAt           *time.Time `json:"vo2_max_at,omitempty"`

	// DataSources is the sorted set of providers that contributed.
	DataSources []string `json:"data_sources"`

	UpdatedAt time.Time `json:"updated_at"`
}

// HasSource reports whether the given provider already contributed to this
// record.
func (d *DailyStats) HasSource(p Provider) bool {
	for _, s := range d.DataSources {
		if s == string(p) {
			return true
		}
	}
	return false
}

// AddSource inserts the provider into DataSources, keeping the set sorted
// and free of duplicates.
func (d *DailyStats) AddSource(p Provider) {
	if d.HasSource(p) {
		return
	}
	d.DataSources = append(d.DataSources, string(p))
	sort.Strings(d.DataSources)
}

// PartialDailyStats is one provider's best-effort contribution for a single
// day. Missing fields are absent (nil), never zero. ObservedAt is the
// source timestamp of the pull and decides newest-wins conflicts for the
// point-in-time metrics.
type PartialDailyStats struct {
	Date             time.Time `json:"date"`
	Steps            *int      `json:"steps,omitempty"`
	ActiveCalories   *int      `json:"active_calories,omitempty"`
	TotalCalories    *int      `json:"total_calories,omitempty"`
	DistanceMeters   *float64  `json:"distance_meters,omitempty"`
	ActiveMinutes    *int      `json:"active_minutes,omitempty"`
	SleepMinutes     *int      `json:"sleep_minutes,omitempty"`
	RestingHeartRate *int      `json:"resting_heart_rate,omitempty"`
	WeightKg         *float64  `json:"weight_kg,omitempty"`
	VO2Max           *float64  `json:"vo2_max,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Empty reports whether the partial carries no metric at all. Empty
// partials are skipped by the orchestrator without touching daily_stats.
func (p *PartialDailyStats) Empty() bool {
	return p.Steps == nil && p.ActiveCalories == nil && p.TotalCalories == nil &&
		p.DistanceMeters == nil && p.ActiveMinutes == nil && p.SleepMinutes == nil &&
		p.RestingHeartRate == nil && p.WeightKg == nil && p.VO2Max == nil
}

// HeartRateSample is one fine-grained heart rate measurement, keyed by
// (user_id, recorded_at) in storage.
type HeartRateSample struct {
	UserID     string    `json:"user_id"`
	RecordedAt time.Time `json:"recorded_at"`
	BPM        int       `json:"bpm"`
	Source     Provider  `json:"source"`
}
