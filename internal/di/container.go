package di

import (
	"memorygrid-backend/internal/config"
	"memorygrid-backend/internal/infrastructure/observability"
	"memorygrid-backend/internal/logging"
	"memorygrid-backend/internal/repository"
	"memorygrid-backend/internal/service/memory"

	"github.com/go-chi/chi/v5"
)

// Container holds the assembled API. Release resources with the cleanup function
// returned by InitializeContainer.
type Container struct {
	Config    *config.Config
	Logger    *logging.Logger
	Router    *chi.Mux
	Store     repository.Store
	Memories  memory.Service
	Collector *observability.Collector // nil when metrics are disabled
	Tracing   *observability.TracerProvider
	ColdStart *ColdStart
}
