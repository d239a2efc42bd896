// Package handlers provides the HTTP handlers of the memory grid API.
package handlers

import (
	"errors"
	"net/http"

	"memorygrid-backend/internal/logging"
	"memorygrid-backend/internal/middleware"
	"memorygrid-backend/internal/session"
	"memorygrid-backend/pkg/api"
	appErrors "memorygrid-backend/pkg/errors"

	"go.uber.org/zap"
)

// currentSession returns the session the auth middleware attached, if any.
func currentSession(r *http.Request) (*session.Session, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok || s.UserID == "" {
		return nil, false
	}
	return s, true
}

// ownerID is the caller's user id, empty for anonymous requests.
func ownerID(r *http.Request) string {
	if s, ok := currentSession(r); ok {
		return s.UserID
	}
	return ""
}

// handleServiceError converts service errors to appropriate HTTP responses
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	log := logging.FromContext(r.Context(), logger)

	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		log.Debug("rejected request body", zap.Error(err))
		api.JSONError(w, http.StatusBadRequest, api.ErrorResponse{
			Error: reqErr.Message,
			Code:  string(appErrors.ErrorTypeInvalidInput),
			Field: reqErr.Field,
		})
		return
	}

	switch appErrors.TypeOf(err) {
	case appErrors.ErrorTypeUnauthenticated:
		log.Debug("unauthenticated request", zap.Error(err))
		middleware.Unauthorized(w)
	case appErrors.ErrorTypeInvalidInput:
		log.Debug("invalid input", zap.Error(err))
		api.JSONError(w, http.StatusBadRequest, api.ErrorResponse{
			Error: err.Error(),
			Code:  string(appErrors.ErrorTypeInvalidInput),
			Field: appErrors.FieldOf(err),
		})
	case appErrors.ErrorTypeNotFound:
		api.JSONError(w, http.StatusNotFound, api.ErrorResponse{
			Error: err.Error(),
			Code:  string(appErrors.ErrorTypeNotFound),
		})
	case appErrors.ErrorTypeStore:
		log.Error("store error", zap.Error(err))
		api.JSONError(w, http.StatusBadGateway, api.ErrorResponse{
			Error: "The memory store is unavailable",
			Code:  string(appErrors.ErrorTypeStore),
		})
	default:
		// Log the full error details for debugging while hiding sensitive info from client
		log.Error("internal error", zap.Error(err), zap.String("error_type", errorTypeName(err)))
		api.JSONError(w, http.StatusInternalServerError, api.ErrorResponse{
			Error: "An internal error occurred",
			Code:  string(appErrors.ErrorTypeInternal),
		})
	}
}

func errorTypeName(err error) string {
	if t := appErrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "unclassified"
}
