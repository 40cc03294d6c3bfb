// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package cloud

import (
	"context"
	"errors"
	"fmt"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/audience-insights/internal/config"
	"github.com/tomtom215/audience-insights/internal/logging"
	"github.com/tomtom215/audience-insights/internal/metrics"
)

// ErrUnavailable is returned without calling the upstream while its breaker
// is open or saturated in half-open state.
var ErrUnavailable = errors.New("cloud: upstream temporarily unavailable")

// breaker guards one upstream service.
type breaker struct {
	name string
	cb   *gobreaker.CircuitBreaker[any]
}

// newBreaker builds a breaker that opens after cfg.ConsecutiveFailures
// failures in a row. Errors for which benign reports true (missing objects,
// cancelled requests) do not count as failures.
func newBreaker(name string, cfg config.BreakerConfig, benign func(error) bool) *breaker {
	metrics.SetBreakerState(name, stateValue(gobreaker.StateClosed))

	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return benign != nil && benign(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.SetBreakerState(name, stateValue(to))
		},
	})

	return &breaker{name: name, cb: cb}
}

// call runs fn through b and records the outcome.
func call[T any](b *breaker, fn func() (T, error)) (T, error) {
	var zero T

	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordUpstream(b.name, "rejected")
			return zero, fmt.Errorf("%s: %w", b.name, ErrUnavailable)
		}
		metrics.RecordUpstream(b.name, "failure")
		return zero, err
	}
	metrics.RecordUpstream(b.name, "success")

	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result type %T", b.name, result)
	}
	return typed, nil
}

// stateValue maps a breaker state to the upstream_breaker_state gauge value.
func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
