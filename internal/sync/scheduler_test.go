// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vitalsync/vitalsync/internal/models"
	"github.com/vitalsync/vitalsync/internal/provider"
)

func newTestScheduler(orc *Orchestrator, conns *fakeConnStore, queue *fakeQueue, audit *fakeAudit) *Scheduler {
	return NewScheduler(orc, conns, queue, audit, SchedulerConfig{
		Interval:       time.Hour,
		Workers:        2,
		ClaimBatchSize: 10,
	}, fixedClock)
}

func queuedItem(connID string, prov models.Provider, retryCount int, nextRetryAt time.Time) *models.RetryQueueItem {
	return &models.RetryQueueItem{
		ID:           uuid.NewString(),
		ConnectionID: connID,
		Provider:     prov,
		WindowStart:  fixedNow.Add(-24 * time.Hour),
		WindowEnd:    fixedNow,
		Status:       models.RetryStatusPending,
		RetryCount:   retryCount,
		LastError:    "previous attempt failed",
		NextRetryAt:  nextRetryAt,
		CreatedAt:    fixedNow.Add(-time.Hour),
		UpdatedAt:    fixedNow.Add(-time.Hour),
	}
}

func TestTickSweepsDueConnections(t *testing.T) {
	fresh := fixedNow.Add(-time.Hour)
	due := testConnection("due", models.ProviderFitbit, nil)
	notDue := testConnection("fresh", models.ProviderFitbit, &fresh)
	adapter := &fakeAdapter{prov: models.ProviderFitbit}
	conns := newFakeConnStore(due, notDue)
	queue := newFakeQueue()
	audit := &fakeAudit{}

	orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, audit, registryWith(adapter))
	sched := newTestScheduler(orc, conns, queue, audit)

	sched.Tick(context.Background())

	if _, ok := conns.synced["due"]; !ok {
		t.Error("due connection was not synced")
	}
	if _, ok := conns.synced["fresh"]; ok {
		t.Error("fresh connection was synced before its frequency elapsed")
	}
	if st := sched.State(); st != StateIdle {
		t.Errorf("state after tick = %s, want idle", st)
	}
}

func TestDrainCompletesSucceedingItem(t *testing.T) {
	conn := testConnection("c1", models.ProviderFitbit, nil)
	adapter := &fakeAdapter{prov: models.ProviderFitbit}
	conns := newFakeConnStore(conn)
	queue := newFakeQueue()
	item := queuedItem("c1", models.ProviderFitbit, 0, fixedNow.Add(-time.Minute))
	if err := queue.Enqueue(context.Background(), item); err != nil {
		t.Fatal(err)
	}

	orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, &fakeAudit{}, registryWith(adapter))
	sched := newTestScheduler(orc, conns, queue, &fakeAudit{})

	sched.drain(context.Background())

	if got := queue.all(); len(got) != 0 {
		t.Errorf("queue items after successful drain = %d, want 0", len(got))
	}
}

func TestDrainReschedulesTransientFailure(t *testing.T) {
	conn := testConnection("c1", models.ProviderFitbit, nil)
	adapter := &fakeAdapter{
		prov: models.ProviderFitbit,
		fetch: func(int, time.Time) (*models.PartialDailyStats, error) {
			return nil, errors.New("upstream 503")
		},
	}
	conns := newFakeConnStore(conn)
	queue := newFakeQueue()
	item := queuedItem("c1", models.ProviderFitbit, 0, fixedNow.Add(-time.Minute))
	if err := queue.Enqueue(context.Background(), item); err != nil {
		t.Fatal(err)
	}

	orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, &fakeAudit{}, registryWith(adapter))
	sched := newTestScheduler(orc, conns, queue, &fakeAudit{})

	sched.drain(context.Background())

	got := queue.all()
	if len(got) != 1 {
		t.Fatalf("queue items = %d, want 1", len(got))
	}
	if got[0].Status != models.RetryStatusPending {
		t.Errorf("status = %s, want pending", got[0].Status)
	}
	if got[0].RetryCount != 1 {
		t.Errorf("retry count = %d, want 1", got[0].RetryCount)
	}
	if want := fixedNow.Add(Backoff(1)); !got[0].NextRetryAt.Equal(want) {
		t.Errorf("next retry at = %v, want %v", got[0].NextRetryAt, want)
	}
}

func TestDrainRateLimitUsesFixedDelay(t *testing.T) {
	conn := testConnection("c1", models.ProviderFitbit, nil)
	adapter := &fakeAdapter{
		prov: models.ProviderFitbit,
		fetch: func(int, time.Time) (*models.PartialDailyStats, error) {
			return nil, &provider.RateLimitError{Provider: "fitbit"}
		},
	}
	conns := newFakeConnStore(conn)
	queue := newFakeQueue()
	if err := queue.Enqueue(context.Background(), queuedItem("c1", models.ProviderFitbit, 0, fixedNow.Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}

	orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, &fakeAudit{}, registryWith(adapter))
	sched := newTestScheduler(orc, conns, queue, &fakeAudit{})

	sched.drain(context.Background())

	got := queue.all()
	if len(got) != 1 {
		t.Fatalf("queue items = %d, want 1", len(got))
	}
	if want := fixedNow.Add(RateLimitDelay); !got[0].NextRetryAt.Equal(want) {
		t.Errorf("next retry at = %v, want %v", got[0].NextRetryAt, want)
	}
}

func TestDrainExhaustsAtAttemptCap(t *testing.T) {
	conn := testConnection("c1", models.ProviderFitbit, nil)
	adapter := &fakeAdapter{
		prov: models.ProviderFitbit,
		fetch: func(int, time.Time) (*models.PartialDailyStats, error) {
			return nil, errors.New("upstream 503")
		},
	}
	conns := newFakeConnStore(conn)
	queue := newFakeQueue()
	audit := &fakeAudit{}
	// One attempt away from the cap.
	if err := queue.Enqueue(context.Background(), queuedItem("c1", models.ProviderFitbit, MaxRetryAttempts-1, fixedNow.Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}

	orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, audit, registryWith(adapter))
	sched := newTestScheduler(orc, conns, queue, audit)

	sched.drain(context.Background())

	got := queue.all()
	if len(got) != 1 {
		t.Fatalf("queue items = %d, want 1 (failed items are retained)", len(got))
	}
	if got[0].Status != models.RetryStatusFailed {
		t.Errorf("status = %s, want failed", got[0].Status)
	}
	if got[0].RetryCount != MaxRetryAttempts {
		t.Errorf("RetryCount = %d, want %d recorded on the failed row", got[0].RetryCount, MaxRetryAttempts)
	}
	if entries := audit.byStatus(models.SyncLogStatusExhausted); len(entries) != 1 {
		t.Errorf("exhausted log entries = %d, want 1", len(entries))
	}
	if conns.isDisabled("c1") {
		t.Error("exhaustion disabled the connection; it should stay enabled for future sweeps")
	}
}

func TestDrainAuthFailureFailsItem(t *testing.T) {
	conn := testConnection("c1", models.ProviderWhoop, nil)
	adapter := &fakeAdapter{
		prov: models.ProviderWhoop,
		fetch: func(int, time.Time) (*models.PartialDailyStats, error) {
			return nil, &provider.AuthError{Provider: "whoop", Reason: "revoked"}
		},
	}
	conns := newFakeConnStore(conn)
	queue := newFakeQueue()
	if err := queue.Enqueue(context.Background(), queuedItem("c1", models.ProviderWhoop, 0, fixedNow.Add(-time.Minute))); err != nil {
		t.Fatal(err)
	}

	orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, &fakeAudit{}, registryWith(adapter))
	sched := newTestScheduler(orc, conns, queue, &fakeAudit{})

	sched.drain(context.Background())

	got := queue.all()
	if len(got) != 1 || got[0].Status != models.RetryStatusFailed {
		t.Fatalf("auth failure item = %+v, want status failed", got)
	}
	if got[0].RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1 (the auth attempt counts)", got[0].RetryCount)
	}
	if !conns.isDisabled("c1") {
		t.Error("auth failure during drain did not disable the connection")
	}
}

func TestDrainFailsItemForMissingOrDisabledConnection(t *testing.T) {
	t.Run("missing connection", func(t *testing.T) {
		conns := newFakeConnStore()
		queue := newFakeQueue()
		if err := queue.Enqueue(context.Background(), queuedItem("gone", models.ProviderFitbit, 0, fixedNow.Add(-time.Minute))); err != nil {
			t.Fatal(err)
		}

		orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, &fakeAudit{}, registryWith())
		sched := newTestScheduler(orc, conns, queue, &fakeAudit{})
		sched.drain(context.Background())

		got := queue.all()
		if len(got) != 1 || got[0].Status != models.RetryStatusFailed {
			t.Errorf("item = %+v, want status failed", got)
		}
	})

	t.Run("disabled connection", func(t *testing.T) {
		conn := testConnection("c1", models.ProviderFitbit, nil)
		conn.SyncEnabled = false
		conns := newFakeConnStore(conn)
		queue := newFakeQueue()
		if err := queue.Enqueue(context.Background(), queuedItem("c1", models.ProviderFitbit, 0, fixedNow.Add(-time.Minute))); err != nil {
			t.Fatal(err)
		}

		orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, &fakeAudit{}, registryWith())
		sched := newTestScheduler(orc, conns, queue, &fakeAudit{})
		sched.drain(context.Background())

		got := queue.all()
		if len(got) != 1 || got[0].Status != models.RetryStatusFailed {
			t.Errorf("item = %+v, want status failed", got)
		}
	})
}

func TestDrainSkipsFutureItems(t *testing.T) {
	conn := testConnection("c1", models.ProviderFitbit, nil)
	conns := newFakeConnStore(conn)
	queue := newFakeQueue()
	if err := queue.Enqueue(context.Background(), queuedItem("c1", models.ProviderFitbit, 0, fixedNow.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, &fakeAudit{}, registryWith())
	sched := newTestScheduler(orc, conns, queue, &fakeAudit{})

	sched.drain(context.Background())

	got := queue.all()
	if len(got) != 1 || got[0].Status != models.RetryStatusPending {
		t.Errorf("future item = %+v, want untouched pending", got)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	adapter := &fakeAdapter{prov: models.ProviderFitbit}
	conns := newFakeConnStore()
	queue := newFakeQueue()

	orc := newTestOrchestrator(conns, &fakeStatsStore{}, queue, &fakeAudit{}, registryWith(adapter))
	sched := newTestScheduler(orc, conns, queue, &fakeAudit{})

	if err := sched.Stop(); err == nil {
		t.Error("Stop before Start did not error")
	}

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := sched.Start(ctx); err == nil {
		t.Error("second Start did not error")
	}
	if err := sched.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}

	// A supervisor restart goes through another Start/Stop cycle; the
	// loop must come back up after the previous stop signal.
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := sched.Stop(); err != nil {
		t.Errorf("Stop after restart: %v", err)
	}
}
