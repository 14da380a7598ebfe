// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitalsync/vitalsync/internal/logging"
	"github.com/vitalsync/vitalsync/internal/metrics"
	"github.com/vitalsync/vitalsync/internal/models"
	"github.com/vitalsync/vitalsync/internal/provider"
)

// ErrSyncInFlight means the connection is already being synced by a
// concurrent sweep, drain, or manual trigger. The caller should skip it;
// the running sync covers the same window.
var ErrSyncInFlight = errors.New("sync already in flight for connection")

// OrchestratorConfig bounds the orchestrator's external calls.
type OrchestratorConfig struct {
	// AdapterTimeout bounds each provider call so a stalled provider
	// blocks only its own connection. Default 30s.
	AdapterTimeout time.Duration

	// Lookback is the window used when a connection has never synced.
	// Default 7 days.
	Lookback time.Duration
}

func (c *OrchestratorConfig) applyDefaults() {
	if c.AdapterTimeout <= 0 {
		c.AdapterTimeout = 30 * time.Second
	}
	if c.Lookback <= 0 {
		c.Lookback = 7 * 24 * time.Hour
	}
}

// Orchestrator runs one connection's sync end to end: window computation,
// per-day adapter calls in ascending date order, merge into daily stats,
// and failure classification. All error classification happens here; the
// scheduler only sees SyncResult.Success.
type Orchestrator struct {
	conns    ConnectionStore
	stats    StatsStore
	queue    RetryQueue
	audit    SyncLog
	adapters *provider.Registry
	cfg      OrchestratorConfig

	// clock is injected so window computation and retry timing are
	// testable with fake time.
	clock func() time.Time

	// inflight holds connection IDs currently being synced. Guarantees
	// single-flight per connection across sweeps, drains, and manual
	// triggers in this process.
	inflight sync.Map
}

// NewOrchestrator wires an orchestrator with its dependencies. A nil clock
// defaults to time.Now.
func NewOrchestrator(conns ConnectionStore, stats StatsStore, queue RetryQueue, audit SyncLog, adapters *provider.Registry, cfg OrchestratorConfig, clock func() time.Time) *Orchestrator {
	cfg.applyDefaults()
	if clock == nil {
		clock = time.Now
	}
	return &Orchestrator{
		conns:    conns,
		stats:    stats,
		queue:    queue,
		audit:    audit,
		adapters: adapters,
		cfg:      cfg,
		clock:    clock,
	}
}

// Sync runs the full scheduled-sync path for one connection: execute the
// window, and on failure branch by class — rate limit enqueues a fixed
// 60-minute retry, auth failure disables the connection with no retry,
// anything else enqueues with exponential backoff.
func (o *Orchestrator) Sync(ctx context.Context, conn *models.Connection) *models.SyncResult {
	res, err := o.Resync(ctx, conn)
	if err == nil || errors.Is(err, ErrSyncInFlight) {
		return res
	}

	switch provider.Classify(err) {
	case provider.ClassAuthFailure:
		// Resync already disabled the connection; nothing to enqueue.
	case provider.ClassRateLimit:
		o.enqueueRetry(ctx, conn, res, err, o.clock().Add(RateLimitDelay))
	default:
		o.enqueueRetry(ctx, conn, res, err, o.clock().Add(Backoff(0)))
	}
	return res
}

// Resync executes one sync attempt without touching the retry queue. The
// scheduler's drain step uses it so a requeued failure updates the claimed
// item instead of spawning a new one. Auth failures still disable the
// connection here: that invariant holds on every path.
//
// The returned error is nil on full success; otherwise it carries the
// classified failure.
func (o *Orchestrator) Resync(ctx context.Context, conn *models.Connection) (*models.SyncResult, error) {
	if !o.tryAcquire(conn.ID) {
		return &models.SyncResult{
			ConnectionID: conn.ID,
			UserID:       conn.UserID,
			Provider:     conn.Provider,
			Errors:       []string{ErrSyncInFlight.Error()},
		}, ErrSyncInFlight
	}
	defer o.release(conn.ID)

	now := o.clock()
	start := now.Add(-o.cfg.Lookback)
	if conn.LastSyncAt != nil {
		start = *conn.LastSyncAt
	}

	res := &models.SyncResult{
		ConnectionID: conn.ID,
		UserID:       conn.UserID,
		Provider:     conn.Provider,
		WindowStart:  start,
		WindowEnd:    now,
	}

	began := time.Now()
	err := o.runWindow(ctx, conn, start, now, res)
	res.Duration = time.Since(began).Milliseconds()
	metrics.RecordSync(conn.Provider.String(), time.Since(began), res.RecordsSynced)

	if err != nil {
		class := provider.Classify(err)
		res.Errors = append(res.Errors, err.Error())
		metrics.SyncErrors.WithLabelValues(conn.Provider.String(), class.String()).Inc()

		if class == provider.ClassAuthFailure {
			if derr := o.conns.Disable(ctx, conn.ID); derr != nil {
				logging.Error().Err(derr).Str("connection", conn.ID).Msg("Failed to disable connection after auth failure")
			} else {
				logging.Warn().Str("connection", conn.ID).Str("provider", conn.Provider.String()).Msg("Connection disabled: re-authorization required")
			}
		}

		o.appendLog(ctx, conn, res, models.SyncLogStatusFailed, err.Error(), began)
		return res, err
	}

	res.Success = true
	if merr := o.conns.MarkSynced(ctx, conn.ID, now); merr != nil {
		logging.Error().Err(merr).Str("connection", conn.ID).Msg("Failed to advance last_sync_at")
	}
	o.appendLog(ctx, conn, res, models.SyncLogStatusSuccess, "", began)

	logging.Info().
		Str("connection", conn.ID).
		Str("provider", conn.Provider.String()).
		Int("records", res.RecordsSynced).
		Time("window_start", start).
		Time("window_end", now).
		Msg("Sync completed")
	return res, nil
}

// runWindow calls the adapter once per calendar day in [start, end]
// inclusive, ascending, merging each day's data as a single atomic upsert,
// then ingests the heart rate series for the whole window when the adapter
// supports it. A failed day aborts the window; already-merged days are safe
// to re-merge on retry because the merge is idempotent.
func (o *Orchestrator) runWindow(ctx context.Context, conn *models.Connection, start, end time.Time, res *models.SyncResult) error {
	adapter, err := o.adapters.Lookup(conn.Provider)
	if err != nil {
		return err
	}

	types := make(map[string]bool)
	day := utcDate(start)
	last := utcDate(end)
	for !day.After(last) {
		// A stop signal lets the current day's merge finish but does not
		// start the next day.
		if ctx.Err() != nil {
			return fmt.Errorf("sync window aborted: %w", ctx.Err())
		}

		partial, ferr := o.fetchDay(ctx, adapter, conn, day)
		if ferr != nil {
			return fmt.Errorf("fetch %s: %w", day.Format("2006-01-02"), ferr)
		}

		if partial != nil && !partial.Empty() {
			clean, dropped := SanitizePartial(partial)
			for _, d := range dropped {
				metrics.ValidationDrops.WithLabelValues(conn.Provider.String(), d.Field).Inc()
				logging.Warn().
					Str("provider", conn.Provider.String()).
					Str("field", d.Field).
					Float64("value", d.Value).
					Time("date", day).
					Msg("Dropped implausible metric value")
			}
			if !clean.Empty() {
				if merr := o.stats.MergeDailyStats(ctx, conn.UserID, conn.Provider, clean); merr != nil {
					return fmt.Errorf("merge %s: %w", day.Format("2006-01-02"), merr)
				}
				res.RecordsSynced++
				for _, t := range dataTypesOf(clean) {
					types[t] = true
				}
			}
		}

		day = day.AddDate(0, 0, 1)
	}

	if hrp, ok := adapter.(provider.HeartRateSeriesProvider); ok {
		n, herr := o.syncHeartRateSeries(ctx, hrp, conn, start, end)
		if herr != nil {
			return fmt.Errorf("heart rate series: %w", herr)
		}
		if n > 0 {
			types["heart_rate_series"] = true
		}
	}

	for t := range types {
		res.DataTypes = append(res.DataTypes, t)
	}
	return nil
}

// fetchDay bounds one daily adapter call with the configured timeout.
func (o *Orchestrator) fetchDay(ctx context.Context, adapter provider.Adapter, conn *models.Connection, day time.Time) (*models.PartialDailyStats, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()

	began := time.Now()
	partial, err := adapter.GetDailyStats(cctx, conn, day)
	metrics.AdapterCallDuration.WithLabelValues(conn.Provider.String(), "daily_stats").Observe(time.Since(began).Seconds())
	return partial, err
}

// syncHeartRateSeries fetches the whole window's samples in one call,
// drops implausible ones, and appends the rest.
func (o *Orchestrator) syncHeartRateSeries(ctx context.Context, hrp provider.HeartRateSeriesProvider, conn *models.Connection, start, end time.Time) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.AdapterTimeout)
	defer cancel()

	began := time.Now()
	samples, err := hrp.GetHeartRateSeries(cctx, conn, start, end)
	metrics.AdapterCallDuration.WithLabelValues(conn.Provider.String(), "heart_rate_series").Observe(time.Since(began).Seconds())
	if err != nil {
		return 0, err
	}

	valid := samples[:0]
	for i := range samples {
		s := samples[i]
		s.UserID = conn.UserID
		s.Source = conn.Provider
		if !ValidHeartRateSample(&s) {
			metrics.ValidationDrops.WithLabelValues(conn.Provider.String(), "heart_rate_sample").Inc()
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return 0, nil
	}
	if err := o.stats.InsertHeartRateSamples(ctx, valid); err != nil {
		return 0, err
	}
	return len(valid), nil
}

// enqueueRetry records a failed window in the retry queue.
func (o *Orchestrator) enqueueRetry(ctx context.Context, conn *models.Connection, res *models.SyncResult, cause error, nextRetryAt time.Time) {
	now := o.clock()
	item := &models.RetryQueueItem{
		ID:           uuid.NewString(),
		ConnectionID: conn.ID,
		Provider:     conn.Provider,
		WindowStart:  res.WindowStart,
		WindowEnd:    res.WindowEnd,
		Status:       models.RetryStatusPending,
		RetryCount:   0,
		LastError:    cause.Error(),
		NextRetryAt:  nextRetryAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := o.queue.Enqueue(ctx, item); err != nil {
		logging.Error().Err(err).Str("connection", conn.ID).Msg("Failed to enqueue retry item")
		return
	}
	logging.Info().
		Str("connection", conn.ID).
		Str("provider", conn.Provider.String()).
		Time("next_retry_at", nextRetryAt).
		Msg("Sync failure enqueued for retry")
}

func (o *Orchestrator) appendLog(ctx context.Context, conn *models.Connection, res *models.SyncResult, status models.SyncLogStatus, errMsg string, began time.Time) {
	entry := &models.SyncLogEntry{
		ID:            uuid.NewString(),
		ConnectionID:  conn.ID,
		UserID:        conn.UserID,
		Provider:      conn.Provider,
		WindowStart:   res.WindowStart,
		WindowEnd:     res.WindowEnd,
		RecordsSynced: res.RecordsSynced,
		Status:        status,
		Error:         errMsg,
		StartedAt:     began,
		FinishedAt:    time.Now(),
	}
	if err := o.audit.Append(ctx, entry); err != nil {
		logging.Error().Err(err).Str("connection", conn.ID).Msg("Failed to append sync log entry")
	}
}

func (o *Orchestrator) tryAcquire(connectionID string) bool {
	_, loaded := o.inflight.LoadOrStore(connectionID, struct{}{})
	return !loaded
}

func (o *Orchestrator) release(connectionID string) {
	o.inflight.Delete(connectionID)
}

// utcDate truncates a timestamp to its UTC calendar date.
func utcDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
