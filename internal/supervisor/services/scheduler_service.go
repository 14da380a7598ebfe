// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

// Package services adapts Start/Stop components and blocking servers to
// suture's Serve pattern so they can live in the supervision tree.
package services

import (
	"context"
	"fmt"
)

// StartStopManager abstracts the scheduler's lifecycle so the wrapper
// can adapt it without depending on the sync package. Satisfied by
// *sync.Scheduler.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps the sync scheduler as a supervised service:
// Start on entry, block until context cancellation, Stop on the way
// out. The scheduler owns its goroutines; the wrapper only drives the
// lifecycle transitions.
type SchedulerService struct {
	manager StartStopManager
	name    string
}

// NewSchedulerService creates the wrapper.
func NewSchedulerService(manager StartStopManager) *SchedulerService {
	return &SchedulerService{
		manager: manager,
		name:    "sync-scheduler",
	}
}

// Serve implements suture.Service. If Start fails the error is returned
// immediately and suture restarts the service per its backoff policy.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	// Stop blocks until the sweep/drain goroutines finish.
	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String identifies the service in supervisor logs.
func (s *SchedulerService) String() string {
	return s.name
}
