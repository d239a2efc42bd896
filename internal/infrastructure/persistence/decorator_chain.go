package persistence

import (
	"time"

	"memorygrid-backend/internal/config"
	"memorygrid-backend/internal/repository"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BreakerStateRecorder receives circuit breaker transitions.
type BreakerStateRecorder interface {
	SetBreakerState(name string, state float64)
}

// StoreMetrics is what the chain records into.
type StoreMetrics interface {
	OperationRecorder
	BreakerStateRecorder
}

// DecoratorChain builds a chain of decorators for the store.
type DecoratorChain struct {
	config  *config.Config
	logger  *zap.Logger
	metrics StoreMetrics
	tracer  trace.Tracer
}

// NewDecoratorChain creates a new decorator chain builder. metrics and tracer may be nil.
func NewDecoratorChain(
	config *config.Config,
	logger *zap.Logger,
	metrics StoreMetrics,
	tracer trace.Tracer,
) *DecoratorChain {
	return &DecoratorChain{config: config, logger: logger, metrics: metrics, tracer: tracer}
}

// Decorate applies all configured decorators.
// Order: Base -> Circuit Breaker -> Metrics -> Tracing -> Logging
func (dc *DecoratorChain) Decorate(base repository.Store) repository.Store {
	decorated := base

	if dc.config.CircuitBreaker.Enabled {
		cbCfg := CircuitBreakerConfig{
			Name:         "store",
			MaxRequests:  dc.config.CircuitBreaker.MaxRequests,
			Interval:     dc.config.CircuitBreaker.Interval,
			Timeout:      dc.config.CircuitBreaker.Timeout,
			MinRequests:  dc.config.CircuitBreaker.MinRequests,
			FailureRatio: dc.config.CircuitBreaker.FailureRatio,
		}
		if dc.metrics != nil {
			cbCfg.OnStateChange = func(name string, _, to gobreaker.State) {
				dc.metrics.SetBreakerState(name, BreakerStateValue(to))
			}
		}
		decorated = NewCircuitBreakerStore(decorated, cbCfg, dc.logger)
		dc.logger.Debug("Applied circuit breaker decorator to store")
	}

	if dc.config.Metrics.Enabled && dc.metrics != nil {
		decorated = NewMetricsStore(decorated, dc.metrics)
		dc.logger.Debug("Applied metrics decorator to store")
	}

	if dc.config.Tracing.Enabled && dc.tracer != nil {
		decorated = NewTracingStore(decorated, dc.tracer, dc.config.Store.Provider)
		dc.logger.Debug("Applied tracing decorator to store")
	}

	decorated = NewLoggingStore(decorated, dc.logger, 500*time.Millisecond)
	return decorated
}
