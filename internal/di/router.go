package di

import (
	"net/http"

	"memorygrid-backend/internal/config"
	"memorygrid-backend/internal/handlers"
	"memorygrid-backend/internal/infrastructure/observability"
	"memorygrid-backend/internal/middleware"
	"memorygrid-backend/internal/service/memory"
	"memorygrid-backend/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RouterDeps is everything the HTTP surface needs.
type RouterDeps struct {
	Config    *config.Config
	Logger    *zap.Logger
	Collector *observability.Collector // nil when metrics are disabled
	Tracer    trace.Tracer
	Verifier  session.Verifier
	Auth      session.AuthAPI // nil when no auth service is configured
	Memories  memory.Service
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(d RouterDeps) *chi.Mux {
	cfg := d.Config
	r := chi.NewRouter()

	// Global middleware - applied to all routes
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recovery(d.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"Content-Disposition", "Location", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           cfg.CORS.MaxAge,
	}))
	if d.Collector != nil {
		r.Use(middleware.Metrics(d.Collector))
	}
	if d.Tracer != nil {
		r.Use(middleware.Tracing(d.Tracer))
	}
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	health := handlers.NewHealthHandler(string(cfg.Environment), cfg.Store.Provider)
	r.Get("/health", health.Health)
	if d.Collector != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, d.Collector.Handler())
	}

	authn := middleware.NewAuthenticator(d.Verifier, d.Logger)
	memories := handlers.NewMemoryHandler(d.Memories, d.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.CircuitBreaker.Enabled {
			// Apply circuit breaker for API routes (protects against cascading failures)
			r.Use(middleware.CircuitBreaker(middleware.DefaultCircuitBreakerConfig("api-routes"), d.Logger))
		}

		if d.Auth != nil {
			auth := handlers.NewAuthHandler(d.Auth, d.Logger)
			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", auth.SignUp)
				r.Post("/signin", auth.SignIn)
				r.With(authn.Required).Post("/signout", auth.SignOut)
				r.With(authn.Required).Get("/session", auth.Me)
			})
		}

		r.Route("/memories", func(r chi.Router) {
			r.Use(authn.Optional)
			r.Get("/", memories.Grid)
			r.Get("/public", memories.ListPublic)
			r.Get("/categories", memories.Categories)
			r.Get("/export", memories.Export)
			r.With(authn.Required).Get("/private", memories.ListPrivate)
			r.With(authn.Required).Post("/", memories.Create)
		})
	})

	return r
}
