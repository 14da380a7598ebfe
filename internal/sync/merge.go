// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package sync

import (
	"time"

	"github.com/vitalsync/vitalsync/internal/models"
	"github.com/vitalsync/vitalsync/internal/provider"
)

// Merge folds one provider's partial into the existing canonical record for
// the same (user, date), returning the merged record. existing may be nil
// (first sync for that date). The per-field policy is the contract the rest
// of the system depends on:
//
//   - Whole-day counters (steps, calories, distance, active and sleep
//     minutes): maximum of existing and incoming. A partial pull never
//     reduces a day's total; a later, more complete pull supersedes an
//     earlier partial one.
//   - Point-in-time values (resting heart rate, weight, VO2 max): the most
//     recently observed value wins, judged by the incoming ObservedAt
//     against the stored per-field observation timestamp. Equal timestamps
//     tie-break on the larger value so the merge stays commutative.
//   - data_sources: set union.
//
// The policy makes Merge idempotent and commutative; both properties are
// pinned by tests.
func Merge(existing *models.DailyStats, incoming *models.PartialDailyStats, p models.Provider) *models.DailyStats {
	var out models.DailyStats
	if existing != nil {
		out = *existing
		out.DataSources = append([]string(nil), existing.DataSources...)
	} else {
		out.Date = incoming.Date
	}

	out.Steps = maxIntPtr(out.Steps, incoming.Steps)
	out.ActiveCalories = maxIntPtr(out.ActiveCalories, incoming.ActiveCalories)
	out.TotalCalories = maxIntPtr(out.TotalCalories, incoming.TotalCalories)
	out.DistanceMeters = maxFloatPtr(out.DistanceMeters, incoming.DistanceMeters)
	out.ActiveMinutes = maxIntPtr(out.ActiveMinutes, incoming.ActiveMinutes)
	out.SleepMinutes = maxIntPtr(out.SleepMinutes, incoming.SleepMinutes)

	out.RestingHeartRate, out.RestingHeartRateAt = newestIntObservation(
		out.RestingHeartRate, out.RestingHeartRateAt, incoming.RestingHeartRate, incoming.ObservedAt)
	out.WeightKg, out.WeightAt = newestFloatObservation(
		out.WeightKg, out.WeightAt, incoming.WeightKg, incoming.ObservedAt)
	out.VO2Max, out.VO2MaxAt = newestFloatObservation(
		out.VO2Max, out.VO2MaxAt, incoming.VO2Max, incoming.ObservedAt)

	out.AddSource(p)
	return &out
}

func maxIntPtr(existing, incoming *int) *int {
	if incoming == nil {
		return existing
	}
	if existing == nil || *incoming > *existing {
		v := *incoming
		return &v
	}
	return existing
}

func maxFloatPtr(existing, incoming *float64) *float64 {
	if incoming == nil {
		return existing
	}
	if existing == nil || *incoming > *existing {
		v := *incoming
		return &v
	}
	return existing
}

// newestIntObservation applies the newest-wins rule for a point-in-time int
// metric, carrying the observation timestamp alongside the value.
func newestIntObservation(existing *int, existingAt *time.Time, incoming *int, incomingAt time.Time) (*int, *time.Time) {
	if incoming == nil {
		return existing, existingAt
	}
	if existing == nil || existingAt == nil || incomingAt.After(*existingAt) ||
		(incomingAt.Equal(*existingAt) && *incoming > *existing) {
		v := *incoming
		at := incomingAt
		return &v, &at
	}
	return existing, existingAt
}

func newestFloatObservation(existing *float64, existingAt *time.Time, incoming *float64, incomingAt time.Time) (*float64, *time.Time) {
	if incoming == nil {
		return existing, existingAt
	}
	if existing == nil || existingAt == nil || incomingAt.After(*existingAt) ||
		(incomingAt.Equal(*existingAt) && *incoming > *existing) {
		v := *incoming
		at := incomingAt
		return &v, &at
	}
	return existing, existingAt
}

// Plausibility bounds for sanitizing adapter output. A value outside its
// bound is a ValidationError: the field is dropped, the rest of the day
// still commits, and nothing is retried.
const (
	maxDailySteps     = 200_000
	maxDailyCalories  = 30_000
	maxDailyDistanceM = 500_000
	maxDayMinutes     = 24 * 60
	minHeartRateBPM   = 20
	maxHeartRateBPM   = 250
	minWeightKg       = 20
	maxWeightKg       = 400
	minVO2Max         = 10
	maxVO2Max         = 100
)

// SanitizePartial drops implausible fields from a partial, returning the
// cleaned copy and one ValidationError per dropped field.
func SanitizePartial(in *models.PartialDailyStats) (*models.PartialDailyStats, []*provider.ValidationError) {
	out := *in
	var dropped []*provider.ValidationError

	drop := func(field string, value float64) {
		dropped = append(dropped, &provider.ValidationError{Field: field, Value: value})
	}

	if out.Steps != nil && (*out.Steps < 0 || *out.Steps > maxDailySteps) {
		drop("steps", float64(*out.Steps))
		out.Steps = nil
	}
	if out.ActiveCalories != nil && (*out.ActiveCalories < 0 || *out.ActiveCalories > maxDailyCalories) {
		drop("active_calories", float64(*out.ActiveCalories))
		out.ActiveCalories = nil
	}
	if out.TotalCalories != nil && (*out.TotalCalories < 0 || *out.TotalCalories > maxDailyCalories) {
		drop("total_calories", float64(*out.TotalCalories))
		out.TotalCalories = nil
	}
	if out.DistanceMeters != nil && (*out.DistanceMeters < 0 || *out.DistanceMeters > maxDailyDistanceM) {
		drop("distance_meters", *out.DistanceMeters)
		out.DistanceMeters = nil
	}
	if out.ActiveMinutes != nil && (*out.ActiveMinutes < 0 || *out.ActiveMinutes > maxDayMinutes) {
		drop("active_minutes", float64(*out.ActiveMinutes))
		out.ActiveMinutes = nil
	}
	if out.SleepMinutes != nil && (*out.SleepMinutes < 0 || *out.SleepMinutes > maxDayMinutes) {
		drop("sleep_minutes", float64(*out.SleepMinutes))
		out.SleepMinutes = nil
	}
	if out.RestingHeartRate != nil && (*out.RestingHeartRate < minHeartRateBPM || *out.RestingHeartRate > maxHeartRateBPM) {
		drop("resting_heart_rate", float64(*out.RestingHeartRate))
		out.RestingHeartRate = nil
	}
	if out.WeightKg != nil && (*out.WeightKg < minWeightKg || *out.WeightKg > maxWeightKg) {
		drop("weight_kg", *out.WeightKg)
		out.WeightKg = nil
	}
	if out.VO2Max != nil && (*out.VO2Max < minVO2Max || *out.VO2Max > maxVO2Max) {
		drop("vo2_max", *out.VO2Max)
		out.VO2Max = nil
	}

	return &out, dropped
}

// ValidHeartRateSample reports whether the sample passes plausibility
// bounds.
func ValidHeartRateSample(s *models.HeartRateSample) bool {
	return s.BPM >= minHeartRateBPM && s.BPM <= maxHeartRateBPM && !s.RecordedAt.IsZero()
}

// dataTypesOf lists the metric names a partial carries, for SyncResult
// reporting.
func dataTypesOf(p *models.PartialDailyStats) []string {
	var types []string
	if p.Steps != nil {
		types = append(types, "steps")
	}
	if p.ActiveCalories != nil || p.TotalCalories != nil {
		types = append(types, "calories")
	}
	if p.DistanceMeters != nil {
		types = append(types, "distance")
	}
	if p.ActiveMinutes != nil {
		types = append(types, "active_minutes")
	}
	if p.SleepMinutes != nil {
		types = append(types, "sleep")
	}
	if p.RestingHeartRate != nil {
		types = append(types, "resting_heart_rate")
	}
	if p.WeightKg != nil {
		types = append(types, "weight")
	}
	if p.VO2Max != nil {
		types = append(types, "vo2_max")
	}
	return types
}
