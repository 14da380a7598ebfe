// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

// Package metrics provides Prometheus instrumentation for the sync engine:
// sweep and per-connection sync timings, adapter call latency, failure
// counts by class, and retry queue depth.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Sync operation metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of one connection's sync in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	SyncRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_total",
			Help: "Total number of daily records merged by sync",
		},
		[]string{"provider"},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Total number of sync failures by error class",
		},
		[]string{"provider", "class"},
	)

	// Adapter call metrics
	AdapterCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adapter_call_duration_seconds",
			Help:    "Duration of provider adapter calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	// Scheduler metrics
	SchedulerSweeps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_sweeps_total",
			Help: "Total number of scheduler sweeps",
		},
	)

	SweepConnections = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_sweep_connections",
			Help:    "Number of due connections per sweep",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	// Retry queue metrics
	RetryQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "retry_queue_pending_items",
			Help: "Current number of pending retry queue items",
		},
	)

	RetryQueueExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retry_queue_exhausted_total",
			Help: "Total number of retry queue items that reached the attempt cap",
		},
	)

	// Merge metrics
	ValidationDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "merge_validation_drops_total",
			Help: "Total number of metric fields dropped by plausibility bounds",
		},
		[]string{"provider", "field"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordSync observes one completed sync attempt.
func RecordSync(provider string, duration time.Duration, records int) {
	SyncDuration.WithLabelValues(provider).Observe(duration.Seconds())
	SyncRecords.WithLabelValues(provider).Add(float64(records))
}
