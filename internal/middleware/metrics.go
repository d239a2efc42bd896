package middleware

import (
	"net/http"
	"time"
)

// HTTPRecorder receives one observation per request.
type HTTPRecorder interface {
	RecordHTTPRequest(method, route string, status int, d time.Duration)
}

// Metrics records request counts and latency by chi route pattern, so path
// parameters do not explode label cardinality.
func Metrics(recorder HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusRecorder(w)
			next.ServeHTTP(rw, r)
			recorder.RecordHTTPRequest(r.Method, routePattern(r), rw.status, time.Since(start))
		})
	}
}
