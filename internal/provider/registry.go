// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vitalsync/vitalsync/internal/logging"
	"github.com/vitalsync/vitalsync/internal/models"
)

// Registry is the capability registry for provider adapters. Only adapters
// whose runtime prerequisites are satisfied get registered at startup; a
// lookup for anything else returns ErrNotRegistered, which the orchestrator
// treats as an other-class failure for that connection, never a crash.
type Registry struct {
	mu       sync.RWMutex
	adapters map[models.Provider]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[models.Provider]Adapter),
	}
}

// Register adds an adapter. Registering the same provider twice is a wiring
// bug and returns an error rather than silently replacing.
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := a.Provider()
	if _, exists := r.adapters[key]; exists {
		return fmt.Errorf("adapter for %s already registered", key)
	}
	r.adapters[key] = a

	_, hrCapable := a.(HeartRateSeriesProvider)
	logging.Info().Str("provider", key.String()).Bool("heart_rate_series", hrCapable).Msg("Provider adapter registered")
	return nil
}

// Lookup returns the adapter for a provider, or ErrNotRegistered.
func (r *Registry) Lookup(p models.Provider) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, p)
	}
	return a, nil
}

// Providers returns the sorted list of registered provider identifiers.
func (r *Registry) Providers() []models.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Provider, 0, len(r.adapters))
	for p := range r.adapters {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
