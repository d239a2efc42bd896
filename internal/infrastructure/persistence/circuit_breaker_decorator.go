// Package persistence provides cross-cutting concerns for row stores.
package persistence

import (
	"context"
	"errors"
	"time"

	"memorygrid-backend/internal/repository"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitBreakerOpen is returned while the store is considered unhealthy.
var ErrCircuitBreakerOpen = errors.New("store circuit breaker is open")

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	Name         string
	MaxRequests  uint32        // Requests allowed through while half-open
	Interval     time.Duration // Closed-state window after which counts reset
	Timeout      time.Duration // How long to stay open before probing
	MinRequests  uint32        // Minimum requests before evaluating FailureRatio
	FailureRatio float64

	// OnStateChange is told about every transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  5,
		FailureRatio: 0.6,
	}
}

// CircuitBreakerStore fails fast while the wrapped store keeps failing. It never
// retries; a rejected call returns ErrCircuitBreakerOpen.
type CircuitBreakerStore struct {
	inner repository.Store
	cb    *gobreaker.CircuitBreaker
}

// NewCircuitBreakerStore wraps inner.
func NewCircuitBreakerStore(inner repository.Store, config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreakerStore {
	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			if config.OnStateChange != nil {
				config.OnStateChange(name, from, to)
			}
		},
		// Cancelled callers say nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &CircuitBreakerStore{inner: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state.
func (s *CircuitBreakerStore) State() gobreaker.State {
	return s.cb.State()
}

// SelectMemories implements repository.Store.
func (s *CircuitBreakerStore) SelectMemories(ctx context.Context, q repository.Query) ([]repository.Row, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.SelectMemories(ctx, q)
	})
	if err != nil {
		return nil, translateBreakerError(err)
	}
	rows, _ := out.([]repository.Row)
	return rows, nil
}

// InsertMemory implements repository.Store.
func (s *CircuitBreakerStore) InsertMemory(ctx context.Context, row repository.Row) (repository.Row, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.inner.InsertMemory(ctx, row)
	})
	if err != nil {
		return repository.Row{}, translateBreakerError(err)
	}
	stored, _ := out.(repository.Row)
	return stored, nil
}

func translateBreakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitBreakerOpen
	}
	return err
}

// BreakerStateValue maps a state onto the circuit_breaker_state gauge.
func BreakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
