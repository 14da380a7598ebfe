// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package provider

import (
	"errors"
	"fmt"
	"time"
)

// Class buckets adapter failures for the orchestrator's branching logic.
// Classification happens once, at the orchestrator boundary; the scheduler
// never inspects error internals.
type Class int

const (
	// ClassTransient covers network timeouts, provider 5xx responses,
	// malformed partial responses, and anything else not classified below.
	// Recovered via exponential backoff, capped attempts.
	ClassTransient Class = iota
	// ClassRateLimit means the provider quota was exceeded. Recovered with
	// a fixed delay matching the quota window; never disables a connection.
	ClassRateLimit
	// ClassAuthFailure means the credential is invalid or expired. Never
	// retried automatically: the connection is disabled until the owner
	// re-authorizes.
	ClassAuthFailure
	// ClassValidation means the provider returned an implausible value.
	// The offending field is dropped; never retried (retrying will not fix
	// bad data).
	ClassValidation
)

func (c Class) String() string {
	switch c {
	case ClassRateLimit:
		return "rate_limit"
	case ClassAuthFailure:
		return "auth_failure"
	case ClassValidation:
		return "validation"
	default:
		return "transient"
	}
}

// RateLimitError signals a provider quota rejection (HTTP 429 equivalent).
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration // zero when the provider gave no hint
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

// AuthError signals an invalid or expired credential (HTTP 401/403
// equivalent). The connection owner must re-authorize.
type AuthError struct {
	Provider string
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Reason)
}

// ValidationError signals a single implausible metric value. The
// orchestrator drops the field and commits the rest of the day.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("implausible %s value %g", e.Field, e.Value)
}

// ErrNotRegistered is returned when a connection references a provider with
// no registered adapter. Treated as an other-class failure, never a crash.
var ErrNotRegistered = errors.New("no adapter registered for provider")

// Classify maps an adapter error to its failure class.
func Classify(err error) Class {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return ClassRateLimit
	}
	var ae *AuthError
	if errors.As(err, &ae) {
		return ClassAuthFailure
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ClassValidation
	}
	return ClassTransient
}
