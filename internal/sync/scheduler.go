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
	"golang.org/x/sync/semaphore"

	"github.com/vitalsync/vitalsync/internal/logging"
	"github.com/vitalsync/vitalsync/internal/metrics"
	"github.com/vitalsync/vitalsync/internal/models"
	"github.com/vitalsync/vitalsync/internal/provider"
)

// State is the scheduler's current phase within a tick.
type State int

const (
	StateIdle State = iota
	StateSweeping
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateSweeping:
		return "sweeping"
	case StateDraining:
		return "draining"
	default:
		return "idle"
	}
}

// SchedulerConfig tunes the process-wide sync driver.
type SchedulerConfig struct {
	// Interval between sweeps. Default 4 hours.
	Interval time.Duration

	// Workers bounds concurrent connection syncs within a sweep. Each
	// connection's own multi-day loop stays sequential; the bound keeps
	// one slow provider from monopolizing the process while preserving
	// fairness across users. Default 4.
	Workers int64

	// ClaimBatchSize bounds how many retry items one drain pass claims.
	// Default 50.
	ClaimBatchSize int
}

func (c *SchedulerConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 4 * time.Hour
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.ClaimBatchSize <= 0 {
		c.ClaimBatchSize = 50
	}
}

// Scheduler drives the engine: on every tick it sweeps due connections
// through the orchestrator under a bounded worker pool, then drains due
// retry queue items through the same path. It runs for the lifetime of the
// hosting process; Start begins it, Stop lets in-flight syncs finish before
// returning.
type Scheduler struct {
	orc   *Orchestrator
	conns ConnectionStore
	queue RetryQueue
	audit SyncLog
	cfg   SchedulerConfig
	clock func() time.Time

	mu       sync.Mutex
	state    State
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler wires a scheduler. A nil clock defaults to time.Now.
func NewScheduler(orc *Orchestrator, conns ConnectionStore, queue RetryQueue, audit SyncLog, cfg SchedulerConfig, clock func() time.Time) *Scheduler {
	cfg.applyDefaults()
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{
		orc:   orc,
		conns: conns,
		queue: queue,
		audit: audit,
		cfg:   cfg,
		clock: clock,
	}
}

// Start begins the periodic sweep loop. The first sweep runs immediately in
// the background rather than waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler is already running")
	}
	s.running = true
	// A fresh channel each Start so the supervisor can restart the
	// service after the previous Stop closed the old one.
	s.stopChan = make(chan struct{})
	stop := s.stopChan
	s.mu.Unlock()

	logging.Info().Dur("interval", s.cfg.Interval).Int64("workers", s.cfg.Workers).Msg("Starting sync scheduler")

	s.wg.Add(1)
	go s.run(ctx, stop)
	return nil
}

// Stop signals the loop to finish and waits for in-flight syncs to
// complete. No sync is abandoned mid-merge: the orchestrator finishes the
// current day before observing the stop.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return errors.New("scheduler is not running")
	}
	s.running = false
	s.mu.Unlock()

	logging.Info().Msg("Stopping sync scheduler...")
	close(s.stopChan)
	s.wg.Wait()
	logging.Info().Msg("Sync scheduler stopped")
	return nil
}

// State returns the scheduler's current phase.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Scheduler) run(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()

	// Immediate first tick on startup.
	s.Tick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one full Idle -> Sweeping -> DrainingRetryQueue -> Idle cycle.
// Exported so a manual trigger or test can drive the cycle without the
// ticker.
func (s *Scheduler) Tick(ctx context.Context) {
	metrics.SchedulerSweeps.Inc()

	s.setState(StateSweeping)
	s.sweep(ctx)

	s.setState(StateDraining)
	s.drain(ctx)

	s.setState(StateIdle)

	if pending, err := s.queue.CountPending(ctx); err == nil {
		metrics.RetryQueueDepth.Set(float64(pending))
	}
}

// sweep syncs every due connection, bounded by the worker pool. A
// connection already in flight (claimed by a concurrent drain or manual
// trigger) is skipped; ErrSyncInFlight is not a failure.
func (s *Scheduler) sweep(ctx context.Context) {
	now := s.clock()
	due, err := s.conns.ListDueConnections(ctx, now)
	if err != nil {
		logging.Error().Err(err).Msg("Sweep failed to list due connections")
		return
	}
	metrics.SweepConnections.Observe(float64(len(due)))
	if len(due) == 0 {
		return
	}

	logging.Info().Int("due", len(due)).Msg("Sweep started")

	sem := semaphore.NewWeighted(s.cfg.Workers)
	for i := range due {
		conn := due[i]
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		go func() {
			defer sem.Release(1)
			res := s.orc.Sync(ctx, &conn)
			if !res.Success && len(res.Errors) > 0 && res.Errors[0] != ErrSyncInFlight.Error() {
				logging.Warn().Str("connection", conn.ID).Str("provider", conn.Provider.String()).Strs("errors", res.Errors).Msg("Scheduled sync failed")
			}
		}()
	}

	// Reacquire the full pool: all workers finished.
	if err := sem.Acquire(context.Background(), s.cfg.Workers); err == nil {
		sem.Release(s.cfg.Workers)
	}
}

// drain claims due retry items and re-runs the orchestrator for each. The
// claim (pending -> processing) excludes concurrent drains; the
// orchestrator's single-flight excludes overlap with a still-running sweep
// worker for the same connection.
func (s *Scheduler) drain(ctx context.Context) {
	now := s.clock()
	items, err := s.queue.ClaimDue(ctx, now, s.cfg.ClaimBatchSize)
	if err != nil {
		logging.Error().Err(err).Msg("Drain failed to claim retry items")
		return
	}
	if len(items) == 0 {
		return
	}

	logging.Info().Int("claimed", len(items)).Msg("Draining retry queue")

	for i := range items {
		s.processRetryItem(ctx, &items[i])
	}
}

func (s *Scheduler) processRetryItem(ctx context.Context, item *models.RetryQueueItem) {
	conn, err := s.conns.GetConnection(ctx, item.ConnectionID)
	if err != nil {
		logging.Error().Err(err).Str("item", item.ID).Msg("Retry item references unloadable connection")
		s.failItem(ctx, item, item.RetryCount, fmt.Sprintf("load connection: %v", err))
		return
	}
	if conn == nil {
		s.failItem(ctx, item, item.RetryCount, "connection no longer exists")
		return
	}
	if !conn.SyncEnabled {
		// Disabled between enqueue and drain (auth failure path). No
		// attempt was made, so the count stays where it was.
		s.failItem(ctx, item, item.RetryCount, "connection disabled")
		return
	}

	_, serr := s.orc.Resync(ctx, conn)
	if serr == nil {
		if cerr := s.queue.Complete(ctx, item.ID); cerr != nil {
			logging.Error().Err(cerr).Str("item", item.ID).Msg("Failed to complete retry item")
		}
		return
	}

	if errors.Is(serr, ErrSyncInFlight) {
		// Another path is syncing this connection right now; put the item
		// back without consuming an attempt.
		if rerr := s.queue.Reschedule(ctx, item.ID, serr.Error(), item.RetryCount, s.clock().Add(time.Minute)); rerr != nil {
			logging.Error().Err(rerr).Str("item", item.ID).Msg("Failed to reschedule in-flight retry item")
		}
		return
	}

	newCount := item.RetryCount + 1

	class := provider.Classify(serr)
	if class == provider.ClassAuthFailure {
		// Resync disabled the connection; the item will never succeed.
		s.failItem(ctx, item, newCount, serr.Error())
		return
	}

	if newCount >= MaxRetryAttempts {
		metrics.RetryQueueExhausted.Inc()
		s.failItem(ctx, item, newCount, serr.Error())
		s.logExhausted(ctx, conn, item, serr)
		return
	}

	delay := Backoff(newCount)
	if class == provider.ClassRateLimit {
		delay = RateLimitDelay
	}
	if rerr := s.queue.Reschedule(ctx, item.ID, serr.Error(), newCount, s.clock().Add(delay)); rerr != nil {
		logging.Error().Err(rerr).Str("item", item.ID).Msg("Failed to reschedule retry item")
	}
}

func (s *Scheduler) failItem(ctx context.Context, item *models.RetryQueueItem, retryCount int, reason string) {
	if err := s.queue.MarkFailed(ctx, item.ID, reason, retryCount); err != nil {
		logging.Error().Err(err).Str("item", item.ID).Msg("Failed to mark retry item failed")
	}
}

// logExhausted records the attempt-cap failure in the audit log; the
// connection itself stays enabled and will be retried on a future sweep.
func (s *Scheduler) logExhausted(ctx context.Context, conn *models.Connection, item *models.RetryQueueItem, cause error) {
	now := time.Now()
	entry := &models.SyncLogEntry{
		ID:           uuid.NewString(),
		ConnectionID: conn.ID,
		UserID:       conn.UserID,
		Provider:     conn.Provider,
		WindowStart:  item.WindowStart,
		WindowEnd:    item.WindowEnd,
		Status:       models.SyncLogStatusExhausted,
		Error:        cause.Error(),
		StartedAt:    now,
		FinishedAt:   now,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		logging.Error().Err(err).Str("connection", conn.ID).Msg("Failed to log exhausted retry")
	}
}
