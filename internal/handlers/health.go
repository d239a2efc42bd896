package handlers

import (
	"net/http"

	"memorygrid-backend/pkg/api"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	environment string
	store       string
}

// NewHealthHandler creates a health handler describing the deployment.
func NewHealthHandler(environment, store string) *HealthHandler {
	return &HealthHandler{environment: environment, store: store}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.HealthResponse{
		Status:      "ok",
		Environment: h.environment,
		Store:       h.store,
	})
}
