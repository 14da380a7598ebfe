// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

// Package rest implements a provider adapter for platforms exposing the
// common JSON-over-HTTPS export API shape (daily activity summaries
// plus an intraday heart rate series). One Adapter instance serves one
// configured platform; per-user credentials travel with the connection.
package rest

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/vitalsync/vitalsync/internal/config"
	"github.com/vitalsync/vitalsync/internal/models"
	"github.com/vitalsync/vitalsync/internal/provider"
)

var (
	_ provider.Adapter                 = (*Adapter)(nil)
	_ provider.HeartRateSeriesProvider = (*Adapter)(nil)
)

// Adapter implements provider.Adapter and
// provider.HeartRateSeriesProvider over a REST client.
type Adapter struct {
	prov   models.Provider
	client *Client
}

// NewAdapter builds an adapter for one provider from its config section.
func NewAdapter(p models.Provider, cfg config.ProviderConfig) *Adapter {
	return &Adapter{
		prov:   p,
		client: NewClient(p, cfg),
	}
}

// Provider reports which platform this adapter serves.
func (a *Adapter) Provider() models.Provider {
	return a.prov
}

// dailySummaryResponse is the upstream daily activity payload. All
// metric fields are optional; absent fields stay nil and never
// overwrite data another provider contributed.
type dailySummaryResponse struct {
	Date             string   `json:"date"`
	Steps            *int     `json:"steps,omitempty"`
	ActiveCalories   *int     `json:"active_calories,omitempty"`
	TotalCalories    *int     `json:"total_calories,omitempty"`
	DistanceMeters   *float64 `json:"distance_meters,omitempty"`
	ActiveMinutes    *int     `json:"active_minutes,omitempty"`
	SleepMinutes     *int     `json:"sleep_minutes,omitempty"`
	RestingHeartRate *int     `json:"resting_heart_rate,omitempty"`
	WeightKg         *float64 `json:"weight_kg,omitempty"`
	VO2Max           *float64 `json:"vo2_max,omitempty"`
	ObservedAt       string   `json:"observed_at,omitempty"`
}

// GetDailyStats fetches one calendar day's summary for the connection's
// user.
func (a *Adapter) GetDailyStats(ctx context.Context, conn *models.Connection, date time.Time) (*models.PartialDailyStats, error) {
	day := date.UTC().Format("2006-01-02")

	var resp dailySummaryResponse
	q := url.Values{"date": {day}}
	if err := a.client.getJSON(ctx, conn.AccessCredential, "v1/daily-summary", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch daily summary for %s: %w", day, err)
	}

	observed := time.Now().UTC()
	if resp.ObservedAt != "" {
		// A malformed timestamp is a broken response, not a bad metric.
		t, err := time.Parse(time.RFC3339, resp.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("%s returned malformed observed_at %q", a.prov, resp.ObservedAt)
		}
		observed = t.UTC()
	}

	return &models.PartialDailyStats{
		Date:             date.UTC(),
		Steps:            resp.Steps,
		ActiveCalories:   resp.ActiveCalories,
		TotalCalories:    resp.TotalCalories,
		DistanceMeters:   resp.DistanceMeters,
		ActiveMinutes:    resp.ActiveMinutes,
		SleepMinutes:     resp.SleepMinutes,
		RestingHeartRate: resp.RestingHeartRate,
		WeightKg:         resp.WeightKg,
		VO2Max:           resp.VO2Max,
		ObservedAt:       observed,
	}, nil
}

type heartRateSeriesResponse struct {
	Samples []struct {
		RecordedAt string `json:"recorded_at"`
		BPM        int    `json:"bpm"`
	} `json:"samples"`
}

// GetHeartRateSeries fetches intraday samples within [start, end].
// Samples with unparseable timestamps are dropped rather than failing
// the whole window.
func (a *Adapter) GetHeartRateSeries(ctx context.Context, conn *models.Connection, start, end time.Time) ([]models.HeartRateSample, error) {
	q := url.Values{
		"start": {start.UTC().Format(time.RFC3339)},
		"end":   {end.UTC().Format(time.RFC3339)},
	}

	var resp heartRateSeriesResponse
	if err := a.client.getJSON(ctx, conn.AccessCredential, "v1/heart-rate", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch heart rate series: %w", err)
	}

	out := make([]models.HeartRateSample, 0, len(resp.Samples))
	for _, s := range resp.Samples {
		at, err := time.Parse(time.RFC3339, s.RecordedAt)
		if err != nil {
			continue
		}
		out = append(out, models.HeartRateSample{
			UserID:     conn.UserID,
			RecordedAt: at.UTC(),
			BPM:        s.BPM,
			Source:     a.prov,
		})
	}
	return out, nil
}
