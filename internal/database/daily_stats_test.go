// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package database

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/vitalsync/vitalsync/internal/models"
)

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }

func dayAt(d int) time.Time { return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC) }

func obsAt(d, h int) time.Time { return time.Date(2026, 8, d, h, 0, 0, 0, time.UTC) }

func TestMergeDailyStatsTwoProviders(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	date := dayAt(29)

	err := db.MergeDailyStats(ctx, "u1", models.ProviderFitbit, &models.PartialDailyStats{
		Date:             date,
		Steps:            intp(10000),
		RestingHeartRate: intp(55),
		ObservedAt:       obsAt(29, 8),
	})
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}

	// Garmin reports fewer steps but a fresher resting heart rate.
	err = db.MergeDailyStats(ctx, "u1", models.ProviderGarmin, &models.PartialDailyStats{
		Date:             date,
		Steps:            intp(9500),
		RestingHeartRate: intp(58),
		WeightKg:         floatp(72.5),
		ObservedAt:       obsAt(29, 20),
	})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	got, err := db.GetDailyStats(ctx, "u1", date)
	if err != nil {
		t.Fatalf("GetDailyStats: %v", err)
	}
	if got == nil {
		t.Fatal("merged record not found")
	}
	if got.Steps == nil || *got.Steps != 10000 {
		t.Errorf("steps = %v, want 10000 (counters take the max)", got.Steps)
	}
	if got.RestingHeartRate == nil || *got.RestingHeartRate != 58 {
		t.Errorf("resting_heart_rate = %v, want 58 (newest observation wins)", got.RestingHeartRate)
	}
	if got.WeightKg == nil || *got.WeightKg != 72.5 {
		t.Errorf("weight_kg = %v, want 72.5", got.WeightKg)
	}
	if want := []string{"fitbit", "garmin"}; !reflect.DeepEqual(got.DataSources, want) {
		t.Errorf("data_sources = %v, want %v", got.DataSources, want)
	}
}

func TestMergeDailyStatsRepullIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	partial := &models.PartialDailyStats{
		Date:       dayAt(28),
		Steps:      intp(4200),
		ObservedAt: obsAt(28, 23),
	}

	for i := 0; i < 3; i++ {
		if err := db.MergeDailyStats(ctx, "u1", models.ProviderFitbit, partial); err != nil {
			t.Fatalf("merge %d: %v", i, err)
		}
	}

	got, err := db.GetDailyStats(ctx, "u1", dayAt(28))
	if err != nil {
		t.Fatal(err)
	}
	if got.Steps == nil || *got.Steps != 4200 {
		t.Errorf("steps = %v, want 4200", got.Steps)
	}
	if len(got.DataSources) != 1 {
		t.Errorf("data_sources = %v, want single entry", got.DataSources)
	}
}

func TestGetDailyStatsMissing(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetDailyStats(context.Background(), "u1", dayAt(1))
	if err != nil {
		t.Fatalf("GetDailyStats: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v for an empty day, want nil", got)
	}
}

func TestListDailyStatsRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for d := 25; d <= 29; d++ {
		err := db.MergeDailyStats(ctx, "u1", models.ProviderFitbit, &models.PartialDailyStats{
			Date:       dayAt(d),
			Steps:      intp(d * 100),
			ObservedAt: obsAt(d, 23),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	// Another user's data must not leak into the range.
	err := db.MergeDailyStats(ctx, "u2", models.ProviderFitbit, &models.PartialDailyStats{
		Date:       dayAt(27),
		Steps:      intp(1),
		ObservedAt: obsAt(27, 23),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := db.ListDailyStats(ctx, "u1", dayAt(26), dayAt(28))
	if err != nil {
		t.Fatalf("ListDailyStats: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("rows = %d, want 3 (range is inclusive)", len(got))
	}
	for i, d := range []int{26, 27, 28} {
		if !got[i].Date.Equal(dayAt(d)) {
			t.Errorf("row %d date = %v, want %v (ascending)", i, got[i].Date, dayAt(d))
		}
		if got[i].Steps == nil || *got[i].Steps != d*100 {
			t.Errorf("row %d steps = %v, want %d", i, got[i].Steps, d*100)
		}
	}
}

func TestInsertHeartRateSamplesDedupes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	at := obsAt(29, 10)

	samples := []models.HeartRateSample{
		{UserID: "u1", RecordedAt: at, BPM: 72, Source: models.ProviderWhoop},
		{UserID: "u1", RecordedAt: at.Add(time.Minute), BPM: 75, Source: models.ProviderWhoop},
	}
	if err := db.InsertHeartRateSamples(ctx, samples); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Re-pulling an overlapping window re-inserts the same instants.
	if err := db.InsertHeartRateSamples(ctx, samples); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	got, err := db.ListHeartRateSamples(ctx, "u1", at.Add(-time.Hour), at.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListHeartRateSamples: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("samples = %d, want 2 (conflicting instants ignored)", len(got))
	}
	if !got[0].RecordedAt.Equal(at) || got[0].BPM != 72 {
		t.Errorf("first sample = %+v, want bpm 72 at %v", got[0], at)
	}
	if got[1].Source != models.ProviderWhoop {
		t.Errorf("source = %s, want whoop", got[1].Source)
	}
}
