package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"memorygrid-backend/pkg/api"
)

// Timeout puts a deadline on the request context. Handlers run on the request
// goroutine; when the deadline passed before anything was written the client gets 504.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			rw := newStatusRecorder(w)
			next.ServeHTTP(rw, r.WithContext(ctx))

			if !rw.written && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				api.Error(rw, http.StatusGatewayTimeout, "Request timeout")
			}
		})
	}
}
