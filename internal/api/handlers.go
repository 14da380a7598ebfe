// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

// Package api provides the HTTP surface: connection management, manual
// sync triggering, and read access to merged stats, heart rate series,
// and the sync audit log. Routing uses Chi; every response is wrapped
// in the APIResponse envelope.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/vitalsync/vitalsync/internal/config"
	"github.com/vitalsync/vitalsync/internal/models"
	syncengine "github.com/vitalsync/vitalsync/internal/sync"
)

// maxRequestBodySize caps JSON request bodies.
const maxRequestBodySize = 1 << 20 // 1MB

// Store is the persistence surface the handlers read and write.
// *database.DB implements it.
type Store interface {
	UpsertConnection(ctx context.Context, conn *models.Connection) error
	ListUserConnections(ctx context.Context, userID string) ([]models.Connection, error)
	ListDailyStats(ctx context.Context, userID string, from, to time.Time) ([]models.DailyStats, error)
	ListHeartRateSamples(ctx context.Context, userID string, start, end time.Time) ([]models.HeartRateSample, error)
	ListSyncLog(ctx context.Context, userID string, limit int) ([]models.SyncLogEntry, error)
	CountPending(ctx context.Context) (int, error)
}

// Syncer triggers user-scoped syncs. *sync.Orchestrator implements it.
type Syncer interface {
	ManualSync(ctx context.Context, userID string, prov models.Provider) ([]models.SyncResult, error)
}

// Handlers holds the HTTP handler set and its dependencies.
type Handlers struct {
	store  Store
	syncer Syncer
	cfg    config.APIConfig
}

// NewHandlers wires the handler set.
func NewHandlers(store Store, syncer Syncer, cfg config.APIConfig) *Handlers {
	return &Handlers{store: store, syncer: syncer, cfg: cfg}
}

// Health reports liveness plus the current retry backlog.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	began := time.Now()
	pending, err := h.store.CountPending(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_ERROR", "database unavailable", err)
		return
	}
	respondOK(w, map[string]interface{}{
		"status":              "healthy",
		"retry_queue_pending": pending,
	}, began)
}

// upsertConnectionRequest is the POST /connections body.
type upsertConnectionRequest struct {
	UserID             string            `json:"user_id" validate:"required,max=128"`
	Provider           string            `json:"provider" validate:"required,oneof=apple_health google_fit fitbit garmin whoop"`
	AccessCredential   string            `json:"access_credential" validate:"required"`
	SyncEnabled        *bool             `json:"sync_enabled"`
	SyncFrequencyHours int               `json:"sync_frequency_hours" validate:"omitempty,gte=1,lte=168"`
	ProviderMetadata   map[string]string `json:"provider_metadata"`
}

// UpsertConnection creates or updates a user's provider connection.
// Re-registering an existing (user, provider) pair replaces the
// credential and re-enables syncing, which is how users recover from an
// auth-failure disable.
func (h *Handlers) UpsertConnection(w http.ResponseWriter, r *http.Request) {
	began := time.Now()

	var req upsertConnectionRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	enabled := true
	if req.SyncEnabled != nil {
		enabled = *req.SyncEnabled
	}
	freq := req.SyncFrequencyHours
	if freq == 0 {
		freq = 24
	}

	conn := &models.Connection{
		UserID:             req.UserID,
		Provider:           models.Provider(req.Provider),
		AccessCredential:   req.AccessCredential,
		SyncEnabled:        enabled,
		SyncFrequencyHours: freq,
		ProviderMetadata:   req.ProviderMetadata,
	}
	if err := h.store.UpsertConnection(r.Context(), conn); err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to store connection", err)
		return
	}
	respondOK(w, conn, began)
}

// ListConnections returns a user's connections. Credentials never
// appear in the response (the field is tagged json:"-").
func (h *Handlers) ListConnections(w http.ResponseWriter, r *http.Request) {
	began := time.Now()
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user_id is required", nil)
		return
	}

	conns, err := h.store.ListUserConnections(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list connections", err)
		return
	}
	respondOK(w, conns, began)
}

// triggerSyncRequest is the POST /sync body.
type triggerSyncRequest struct {
	UserID   string `json:"user_id" validate:"required,max=128"`
	Provider string `json:"provider" validate:"omitempty,oneof=apple_health google_fit fitbit garmin whoop"`
}

// TriggerSync runs an immediate sync for one user, optionally scoped to
// a single provider, and returns the per-connection results.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	began := time.Now()

	var req triggerSyncRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err := decoder.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	results, err := h.syncer.ManualSync(r.Context(), req.UserID, models.Provider(req.Provider))
	if err != nil {
		if errors.Is(err, syncengine.ErrNoConnections) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "SYNC_ERROR", "sync failed", err)
		return
	}
	respondOK(w, results, began)
}

// DailyStats returns merged daily records for a user within a date
// range (default: the last 7 days).
func (h *Handlers) DailyStats(w http.ResponseWriter, r *http.Request) {
	began := time.Now()
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user_id is required", nil)
		return
	}

	now := time.Now().UTC()
	from, err := parseDateParam(r, "from", now.AddDate(0, 0, -7))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	to, err := parseDateParam(r, "to", now)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "to must not be before from", nil)
		return
	}

	stats, err := h.store.ListDailyStats(r.Context(), userID, from, to)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list daily stats", err)
		return
	}
	respondOK(w, stats, began)
}

// HeartRate returns intraday samples for a user within a time range
// (default: the last 24 hours).
func (h *Handlers) HeartRate(w http.ResponseWriter, r *http.Request) {
	began := time.Now()
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user_id is required", nil)
		return
	}

	now := time.Now().UTC()
	start, err := parseDateParam(r, "start", now.AddDate(0, 0, -1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	end, err := parseDateParam(r, "end", now)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	samples, err := h.store.ListHeartRateSamples(r.Context(), userID, start, end.Add(24*time.Hour))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list heart rate samples", err)
		return
	}
	respondOK(w, samples, began)
}

// SyncLog returns a user's recent sync attempts, newest first.
func (h *Handlers) SyncLog(w http.ResponseWriter, r *http.Request) {
	began := time.Now()
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "user_id is required", nil)
		return
	}

	limit, err := parseIntParam(r, "limit", 50, h.cfg.MaxLogPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	entries, err := h.store.ListSyncLog(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list sync log", err)
		return
	}
	respondOK(w, entries, began)
}
