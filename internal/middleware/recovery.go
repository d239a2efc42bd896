package middleware

import (
	"net/http"
	"runtime/debug"

	"memorygrid-backend/pkg/api"

	"go.uber.org/zap"
)

// Recovery middleware handles panics and converts them to proper HTTP error responses
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newStatusRecorder(w)
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestIDFromRequest(r)),
						zap.Any("panic", err),
						zap.ByteString("stack", debug.Stack()))

					// If response was already partially written, there's nothing we can do
					if !rw.written {
						api.Error(rw, http.StatusInternalServerError, "Internal server error")
					}
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
