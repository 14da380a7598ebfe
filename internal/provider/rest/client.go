// VitalSync - Multi-Provider Health Data Synchronization Engine
// Copyright 2026 VitalSync Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitalsync/vitalsync

package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/vitalsync/vitalsync/internal/config"
	"github.com/vitalsync/vitalsync/internal/logging"
	"github.com/vitalsync/vitalsync/internal/metrics"
	"github.com/vitalsync/vitalsync/internal/models"
	"github.com/vitalsync/vitalsync/internal/provider"
)

// maxErrorBodySize caps how much of an error response body is read for
// diagnostics, preventing unbounded allocation on large error pages.
const maxErrorBodySize = 64 * 1024

// Client is an HTTP client for one provider's REST API. It enforces a
// client-side request rate, wraps calls in a circuit breaker, and maps
// HTTP status codes onto the shared failure taxonomy.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	provider   models.Provider
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a Client from one provider's config section.
func NewClient(p models.Provider, cfg config.ProviderConfig) *Client {
	cbName := string(p) + "-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
		IsSuccessful: func(err error) bool {
			// Upstream throttling and bad credentials are not service
			// outages; tripping the breaker on them would mask the
			// real failure class from the retry policy.
			if err == nil {
				return true
			}
			switch provider.Classify(err) {
			case provider.ClassRateLimit, provider.ClassAuthFailure, provider.ClassValidation:
				return true
			}
			return false
		},
	})

	perSecond := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)

	return &Client{
		provider: p,
		baseURL:  cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(perSecond, cfg.RateLimitPerMinute),
		cb:      cb,
	}
}

// get performs an authenticated GET and returns the response body.
// Status codes map onto the failure taxonomy: 401/403 are auth
// failures, 429 is a rate limit (honoring Retry-After), 5xx and
// transport errors are transient.
func (c *Client) get(ctx context.Context, credential, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	start := time.Now()
	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.doGet(ctx, credential, path, query)
	})
	metrics.AdapterCallDuration.WithLabelValues(string(c.provider), path).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) doGet(ctx context.Context, credential, path string, query url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	u = u.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return body, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &provider.AuthError{
			Provider: string(c.provider),
			Reason:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, readBodyForError(resp.Body)),
		}

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &provider.RateLimitError{
			Provider:   string(c.provider),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}

	default:
		return nil, fmt.Errorf("%s returned HTTP %d: %s",
			c.provider, resp.StatusCode, readBodyForError(resp.Body))
	}
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, credential, path string, query url.Values, out interface{}) error {
	body, err := c.get(ctx, credential, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response for %s: %w", c.provider, path, err)
	}
	return nil
}

// parseRetryAfter interprets the Retry-After header. Only the
// delta-seconds form is honored; anything else yields zero and the
// caller falls back to its own delay.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}
