// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package models

import "time"

// SyncResult summarizes one orchestrator run for one connection.
// The scheduler only inspects Success; error classification stays inside
// the orchestrator boundary.
type SyncResult struct {
	ConnectionID  string    `json:"connection_id"`
	UserID        string    `json:"user_id"`
	Provider      Provider  `json:"provider"`
	Success       bool      `json:"success"`
	RecordsSynced int       `json:"records_synced"`
	DataTypes     []string  `json:"data_types,omitempty"`
	Errors        []string  `json:"errors,omitempty"`
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	Duration      int64     `json:"duration_ms"`
}

// SyncLogStatus is the terminal status recorded for a sync attempt.
type SyncLogStatus string

const (
	SyncLogStatusSuccess   SyncLogStatus = "success"
	SyncLogStatusFailed    SyncLogStatus = "failed"
	SyncLogStatusExhausted SyncLogStatus = "exhausted" // retry cap reached
)

// SyncLogEntry is one row of the append-only sync audit log. Entries are
// written for every attempt, scheduled or manual, and never mutated.
type SyncLogEntry struct {
	ID            string        `json:"id"`
	ConnectionID  string        `json:"connection_id"`
	UserID        string        `json:"user_id"`
	Provider      Provider      `json:"provider"`
	WindowStart   time.Time     `json:"window_start"`
	WindowEnd     time.Time     `json:"window_end"`
	RecordsSynced int           `json:"records_synced"`
	Status        SyncLogStatus `json:"status"`
	Error         string        `json:"error,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
}
