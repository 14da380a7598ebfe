// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

// Package models defines the core data types shared across the sync engine:
// provider identifiers, connections, daily stats, retry queue items, and
// sync results.
package models

// Provider identifies an external health/fitness platform.
type Provider string

// Supported provider identifiers. A Connection referencing a provider that
// has no registered adapter at runtime fails sync with an other-class error
// rather than crashing (see internal/provider.Registry).
const (
	ProviderAppleHealth Provider = "apple_health"
	ProviderGoogleFit   Provider = "google_fit"
	ProviderFitbit      Provider = "fitbit"
	ProviderGarmin      Provider = "garmin"
	ProviderWhoop       Provider = "whoop"
)

// KnownProviders lists every provider identifier this build understands.
var KnownProviders = []Provider{
	ProviderAppleHealth,
	ProviderGoogleFit,
	ProviderFitbit,
	ProviderGarmin,
	ProviderWhoop,
}

// Valid reports whether p is a known provider identifier.
func (p Provider) Valid() bool {
	for _, known := range KnownProviders {
		if p == known {
			return true
		}
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}
