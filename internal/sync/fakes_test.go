// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package sync

import (
	"context"
	"sync"
	"time"

	"github.com/vitalsync/vitalsync/internal/models"
	"github.com/vitalsync/vitalsync/internal/provider"
)

// fakeConnStore is an in-memory ConnectionStore.
type fakeConnStore struct {
	mu       sync.Mutex
	conns    map[string]*models.Connection
	disabled map[string]bool
	synced   map[string]time.Time
}

func newFakeConnStore(conns ...*models.Connection) *fakeConnStore {
	s := &fakeConnStore{
		conns:    make(map[string]*models.Connection),
		disabled: make(map[string]bool),
		synced:   make(map[string]time.Time),
	}
	for _, c := range conns {
		s.conns[c.ID] = c
	}
	return s
}

func (s *fakeConnStore) ListDueConnections(_ context.Context, now time.Time) ([]models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Connection
	for _, c := range s.conns {
		if c.Due(now) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeConnStore) ListUserConnections(_ context.Context, userID string) ([]models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Connection
	for _, c := range s.conns {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeConnStore) GetConnection(_ context.Context, id string) (*models.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *fakeConnStore) MarkSynced(_ context.Context, connectionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced[connectionID] = at
	if c, ok := s.conns[connectionID]; ok {
		t := at
		c.LastSyncAt = &t
	}
	return nil
}

func (s *fakeConnStore) Disable(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled[connectionID] = true
	if c, ok := s.conns[connectionID]; ok {
		c.SyncEnabled = false
	}
	return nil
}

func (s *fakeConnStore) isDisabled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled[id]
}

// fakeStatsStore records merges and samples.
type fakeStatsStore struct {
	mu      sync.Mutex
	merges  []mergeCall
	samples []models.HeartRateSample
}

type mergeCall struct {
	userID  string
	prov    models.Provider
	partial *models.PartialDailyStats
}

func (s *fakeStatsStore) MergeDailyStats(_ context.Context, userID string, p models.Provider, partial *models.PartialDailyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merges = append(s.merges, mergeCall{userID, p, partial})
	return nil
}

func (s *fakeStatsStore) InsertHeartRateSamples(_ context.Context, samples []models.HeartRateSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, samples...)
	return nil
}

func (s *fakeStatsStore) mergeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.merges)
}

// fakeQueue is an in-memory RetryQueue.
type fakeQueue struct {
	mu    sync.Mutex
	items map[string]*models.RetryQueueItem
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{items: make(map[string]*models.RetryQueueItem)}
}

func (q *fakeQueue) Enqueue(_ context.Context, item *models.RetryQueueItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := *item
	q.items[item.ID] = &cp
	return nil
}

func (q *fakeQueue) ClaimDue(_ context.Context, now time.Time, limit int) ([]models.RetryQueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []models.RetryQueueItem
	for _, it := range q.items {
		if len(out) >= limit {
			break
		}
		if it.Status == models.RetryStatusPending && !it.NextRetryAt.After(now) {
			it.Status = models.RetryStatusProcessing
			out = append(out, *it)
		}
	}
	return out, nil
}

func (q *fakeQueue) Complete(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.items, id)
	return nil
}

func (q *fakeQueue) Reschedule(_ context.Context, id, lastError string, retryCount int, nextRetryAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it, ok := q.items[id]; ok {
		it.Status = models.RetryStatusPending
		it.LastError = lastError
		it.RetryCount = retryCount
		it.NextRetryAt = nextRetryAt
	}
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id, lastError string, retryCount int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it, ok := q.items[id]; ok {
		it.Status = models.RetryStatusFailed
		it.LastError = lastError
		it.RetryCount = retryCount
	}
	return nil
}

func (q *fakeQueue) CountPending(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, it := range q.items {
		if it.Status == models.RetryStatusPending {
			n++
		}
	}
	return n, nil
}

func (q *fakeQueue) all() []models.RetryQueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []models.RetryQueueItem
	for _, it := range q.items {
		out = append(out, *it)
	}
	return out
}

// fakeAudit records appended log entries.
type fakeAudit struct {
	mu      sync.Mutex
	entries []models.SyncLogEntry
}

func (a *fakeAudit) Append(_ context.Context, e *models.SyncLogEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *e)
	return nil
}

func (a *fakeAudit) byStatus(st models.SyncLogStatus) []models.SyncLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.SyncLogEntry
	for _, e := range a.entries {
		if e.Status == st {
			out = append(out, e)
		}
	}
	return out
}

// fakeAdapter returns canned data or errors per call.
type fakeAdapter struct {
	prov models.Provider

	mu    sync.Mutex
	calls int

	// fetch overrides the default canned-steps response when set.
	fetch func(call int, date time.Time) (*models.PartialDailyStats, error)
}

func (f *fakeAdapter) Provider() models.Provider { return f.prov }

func (f *fakeAdapter) GetDailyStats(_ context.Context, _ *models.Connection, date time.Time) (*models.PartialDailyStats, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.fetch != nil {
		return f.fetch(call, date)
	}
	steps := 1000 * call
	return &models.PartialDailyStats{
		Date:       date,
		Steps:      &steps,
		ObservedAt: date.Add(23 * time.Hour),
	}, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeHRAdapter adds the heart rate series capability.
type fakeHRAdapter struct {
	fakeAdapter
	series []models.HeartRateSample
}

func (f *fakeHRAdapter) GetHeartRateSeries(_ context.Context, _ *models.Connection, _, _ time.Time) ([]models.HeartRateSample, error) {
	return f.series, nil
}

func registryWith(adapters ...provider.Adapter) *provider.Registry {
	r := provider.NewRegistry()
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}

func testConnection(id string, prov models.Provider, lastSync *time.Time) *models.Connection {
	return &models.Connection{
		ID:                 id,
		UserID:             "user-1",
		Provider:           prov,
		AccessCredential:   "token",
		SyncEnabled:        true,
		SyncFrequencyHours: 4,
		LastSyncAt:         lastSync,
	}
}
