package middleware

import (
	"errors"
	"net/http"
	"time"

	"memorygrid-backend/pkg/api"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var errServerFailure = errors.New("handler returned a 5xx status")

// CircuitBreakerConfig holds configuration for circuit breaker
type CircuitBreakerConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// FailureThreshold is the failure ratio that trips the breaker once MinRequests were seen
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultCircuitBreakerConfig returns a default configuration for circuit breaker
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      5,                // Allow more requests in half-open state
		Interval:         30 * time.Second, // Longer interval before resetting stats
		Timeout:          60 * time.Second, // Longer timeout before trying half-open
		FailureThreshold: 0.8,              // 80% failure rate (less aggressive)
		MinRequests:      5,                // More requests before evaluating failure rate
	}
}

// CircuitBreaker rejects requests with 503 while the handlers behind it keep
// answering with 5xx.
func CircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip if we have enough requests to make a decision
			if counts.Requests < config.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= config.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("http circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := cb.Execute(func() (any, error) {
				rw := newStatusRecorder(w)
				next.ServeHTTP(rw, r)

				// Consider 5xx status codes as failures for circuit breaker
				if rw.status >= 500 {
					return nil, errServerFailure
				}
				return nil, nil
			})

			switch {
			case err == nil, errors.Is(err, errServerFailure):
				// The handler already answered.
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				logger.Warn("request rejected by circuit breaker",
					zap.String("breaker", config.Name),
					zap.String("path", r.URL.Path),
					zap.Error(err))
				w.Header().Set("Retry-After", "30")
				api.Error(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
			default:
				api.Error(w, http.StatusInternalServerError, "Service error")
			}
		})
	}
}
