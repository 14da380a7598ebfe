// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the HTTP routing tree.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	// Health gets a permissive limit so monitoring can poll freely.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, h.cfg.RateLimitWindow))
		r.Get("/api/v1/health", h.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(h.cfg.RateLimitReqs, h.cfg.RateLimitWindow))

		r.Post("/sync", h.TriggerSync)
		r.Post("/connections", h.UpsertConnection)
		r.Get("/connections", h.ListConnections)
		r.Get("/stats/daily", h.DailyStats)
		r.Get("/heart-rate", h.HeartRate)
		r.Get("/sync/log", h.SyncLog)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
