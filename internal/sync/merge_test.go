// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package sync

import (
	"reflect"
	"testing"
	"time"

	"github.com/vitalsync/vitalsync/internal/models"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func stamp(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func TestMergeNilExisting(t *testing.T) {
	partial := &models.PartialDailyStats{
		Date:       day("2026-08-30"),
		Steps:      intPtr(8000),
		ObservedAt: stamp("2026-08-30T20:00:00Z"),
	}

	got := Merge(nil, partial, models.ProviderFitbit)

	if got.Steps == nil || *got.Steps != 8000 {
		t.Errorf("Steps = %v, want 8000", got.Steps)
	}
	if !got.Date.Equal(day("2026-08-30")) {
		t.Errorf("Date = %v, want 2026-08-30", got.Date)
	}
	if !got.HasSource(models.ProviderFitbit) {
		t.Errorf("DataSources = %v, want to contain fitbit", got.DataSources)
	}
}

func TestMergeCountersTakeMax(t *testing.T) {
	existing := Merge(nil, &models.PartialDailyStats{
		Date:           day("2026-08-30"),
		Steps:          intPtr(10000),
		ActiveCalories: intPtr(300),
		DistanceMeters: floatPtr(7500),
		ObservedAt:     stamp("2026-08-30T12:00:00Z"),
	}, models.ProviderFitbit)

	got := Merge(existing, &models.PartialDailyStats{
		Date:           day("2026-08-30"),
		Steps:          intPtr(9500), // lower: must not reduce the total
		ActiveCalories: intPtr(450),
		DistanceMeters: floatPtr(7000),
		SleepMinutes:   intPtr(420),
		ObservedAt:     stamp("2026-08-30T13:00:00Z"),
	}, models.ProviderGarmin)

	if *got.Steps != 10000 {
		t.Errorf("Steps = %d, want 10000 (max)", *got.Steps)
	}
	if *got.ActiveCalories != 450 {
		t.Errorf("ActiveCalories = %d, want 450 (max)", *got.ActiveCalories)
	}
	if *got.DistanceMeters != 7500 {
		t.Errorf("DistanceMeters = %g, want 7500 (max)", *got.DistanceMeters)
	}
	if *got.SleepMinutes != 420 {
		t.Errorf("SleepMinutes = %d, want 420 (only source)", *got.SleepMinutes)
	}
	want := []string{"fitbit", "garmin"}
	if !reflect.DeepEqual(got.DataSources, want) {
		t.Errorf("DataSources = %v, want %v", got.DataSources, want)
	}
}

func TestMergePointInTimeNewestWins(t *testing.T) {
	older := &models.PartialDailyStats{
		Date:             day("2026-08-30"),
		RestingHeartRate: intPtr(58),
		WeightKg:         floatPtr(71.2),
		ObservedAt:       stamp("2026-08-30T08:00:00Z"),
	}
	newer := &models.PartialDailyStats{
		Date:             day("2026-08-30"),
		RestingHeartRate: intPtr(55),
		WeightKg:         floatPtr(70.8),
		ObservedAt:       stamp("2026-08-30T21:00:00Z"),
	}

	t.Run("newer replaces older", func(t *testing.T) {
		got := Merge(Merge(nil, older, models.ProviderFitbit), newer, models.ProviderWhoop)
		if *got.RestingHeartRate != 55 {
			t.Errorf("RestingHeartRate = %d, want 55 (newer observation)", *got.RestingHeartRate)
		}
		if *got.WeightKg != 70.8 {
			t.Errorf("WeightKg = %g, want 70.8", *got.WeightKg)
		}
	})

	t.Run("older does not replace newer", func(t *testing.T) {
		got := Merge(Merge(nil, newer, models.ProviderWhoop), older, models.ProviderFitbit)
		if *got.RestingHeartRate != 55 {
			t.Errorf("RestingHeartRate = %d, want 55 (newer observation kept)", *got.RestingHeartRate)
		}
	})
}

func TestMergeCommutative(t *testing.T) {
	a := &models.PartialDailyStats{
		Date:             day("2026-08-30"),
		Steps:            intPtr(12000),
		RestingHeartRate: intPtr(60),
		ObservedAt:       stamp("2026-08-30T10:00:00Z"),
	}
	b := &models.PartialDailyStats{
		Date:             day("2026-08-30"),
		Steps:            intPtr(11000),
		RestingHeartRate: intPtr(57),
		VO2Max:           floatPtr(44.5),
		ObservedAt:       stamp("2026-08-30T10:00:00Z"), // equal timestamps: tie-break must agree
	}

	ab := Merge(Merge(nil, a, models.ProviderFitbit), b, models.ProviderGarmin)
	ba := Merge(Merge(nil, b, models.ProviderGarmin), a, models.ProviderFitbit)

	if !reflect.DeepEqual(ab, ba) {
		t.Errorf("merge order changed the result:\n a,b: %+v\n b,a: %+v", ab, ba)
	}
}

func TestMergeIdempotent(t *testing.T) {
	p := &models.PartialDailyStats{
		Date:             day("2026-08-30"),
		Steps:            intPtr(9000),
		RestingHeartRate: intPtr(62),
		ObservedAt:       stamp("2026-08-30T18:00:00Z"),
	}

	once := Merge(nil, p, models.ProviderFitbit)
	twice := Merge(once, p, models.ProviderFitbit)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("re-merging the same partial changed the record:\n once: %+v\n twice: %+v", once, twice)
	}
}

func TestMergeAbsentFieldsPreserved(t *testing.T) {
	existing := Merge(nil, &models.PartialDailyStats{
		Date:         day("2026-08-30"),
		SleepMinutes: intPtr(480),
		ObservedAt:   stamp("2026-08-30T07:00:00Z"),
	}, models.ProviderWhoop)

	got := Merge(existing, &models.PartialDailyStats{
		Date:       day("2026-08-30"),
		Steps:      intPtr(5000),
		ObservedAt: stamp("2026-08-30T22:00:00Z"),
	}, models.ProviderFitbit)

	if got.SleepMinutes == nil || *got.SleepMinutes != 480 {
		t.Errorf("SleepMinutes = %v, want 480 preserved from earlier provider", got.SleepMinutes)
	}
	if got.Steps == nil || *got.Steps != 5000 {
		t.Errorf("Steps = %v, want 5000", got.Steps)
	}
}

func TestSanitizePartial(t *testing.T) {
	tests := []struct {
		name        string
		in          models.PartialDailyStats
		wantDropped []string
	}{
		{
			name: "all plausible",
			in: models.PartialDailyStats{
				Steps:            intPtr(15000),
				RestingHeartRate: intPtr(55),
				WeightKg:         floatPtr(70),
			},
			wantDropped: nil,
		},
		{
			name:        "negative steps",
			in:          models.PartialDailyStats{Steps: intPtr(-1)},
			wantDropped: []string{"steps"},
		},
		{
			name:        "absurd steps",
			in:          models.PartialDailyStats{Steps: intPtr(1_000_000)},
			wantDropped: []string{"steps"},
		},
		{
			name:        "heart rate out of range",
			in:          models.PartialDailyStats{RestingHeartRate: intPtr(10)},
			wantDropped: []string{"resting_heart_rate"},
		},
		{
			name: "mixed keeps good fields",
			in: models.PartialDailyStats{
				Steps:        intPtr(8000),
				SleepMinutes: intPtr(2000), // more minutes than a day has
				WeightKg:     floatPtr(500),
			},
			wantDropped: []string{"sleep_minutes", "weight_kg"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, dropped := SanitizePartial(&tt.in)

			var fields []string
			for _, d := range dropped {
				fields = append(fields, d.Field)
			}
			if !reflect.DeepEqual(fields, tt.wantDropped) {
				t.Errorf("dropped = %v, want %v", fields, tt.wantDropped)
			}

			// Kept fields must survive untouched.
			if tt.in.Steps != nil && *tt.in.Steps >= 0 && *tt.in.Steps <= maxDailySteps {
				if clean.Steps == nil || *clean.Steps != *tt.in.Steps {
					t.Errorf("plausible Steps was modified: %v", clean.Steps)
				}
			}
		})
	}
}

func TestValidHeartRateSample(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		sample models.HeartRateSample
		want   bool
	}{
		{"normal", models.HeartRateSample{BPM: 72, RecordedAt: now}, true},
		{"too low", models.HeartRateSample{BPM: 10, RecordedAt: now}, false},
		{"too high", models.HeartRateSample{BPM: 300, RecordedAt: now}, false},
		{"zero time", models.HeartRateSample{BPM: 72}, false},
		{"boundary low", models.HeartRateSample{BPM: 20, RecordedAt: now}, true},
		{"boundary high", models.HeartRateSample{BPM: 250, RecordedAt: now}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidHeartRateSample(&tt.sample); got != tt.want {
				t.Errorf("ValidHeartRateSample(%+v) = %v, want %v", tt.sample, got, tt.want)
			}
		})
	}
}
