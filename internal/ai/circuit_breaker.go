package ai

import (
	"cvanalyzer/internal/config"
	"cvanalyzer/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards one kind of oracle call. A nil *CircuitBreaker is
// valid and runs calls unguarded.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// Tripping policy for a breaker
type tripPolicy struct {
	minRequests      uint32
	failureThreshold float64
}

// NewCircuitBreaker builds a breaker from cfg, or returns nil when cfg disables it
func NewCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker[T] {
	return newCircuitBreaker[T](name, cfg, tripPolicy{cfg.MinRequests, cfg.FailureThreshold}, logger)
}

// newLenientCircuitBreaker is used for model metadata calls, which matter less
// than scoring calls and should only trip on sustained failure
func newLenientCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *CircuitBreaker[T] {
	return newCircuitBreaker[T](name, cfg, tripPolicy{5, 0.8}, logger)
}

func newCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, policy tripPolicy, logger *errors.Logger) *CircuitBreaker[T] {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.minRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= policy.failureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"failure_threshold", policy.failureThreshold)
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn under the breaker
func (b *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats returns breaker state for the /stats endpoint
func (b *CircuitBreaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy reports whether the breaker is closed
func (b *CircuitBreaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
