// Package di wires the memory grid services together with Google Wire.
package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"memorygrid-backend/internal/config"
	"memorygrid-backend/internal/events"
	"memorygrid-backend/internal/infrastructure/observability"
	"memorygrid-backend/internal/infrastructure/persistence"
	"memorygrid-backend/internal/logging"
	"memorygrid-backend/internal/repository"
	"memorygrid-backend/internal/repository/ddb"
	"memorygrid-backend/internal/repository/mocks"
	"memorygrid-backend/internal/repository/supabase"
	"memorygrid-backend/internal/service/memory"
	"memorygrid-backend/internal/session"
	"memorygrid-backend/pkg/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	awsDynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsEventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/go-chi/chi/v5"
	"github.com/google/wire"
	supa "github.com/supabase-community/supabase-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ConfigProviders provides the logger built from the injected configuration.
var ConfigProviders = wire.NewSet(
	provideLogger,
	provideZapLogger,
)

// InfrastructureProviders provides clients, the decorated store and the event publisher.
var InfrastructureProviders = wire.NewSet(
	provideCollector,
	provideTracerProvider,
	provideTracer,
	provideSupabaseClient,
	provideAWSConfig,
	provideStore,
	providePublisher,
)

// AuthProviders provides the auth service adapter and the token verifier.
var AuthProviders = wire.NewSet(
	provideAuthAPI,
	provideVerifier,
)

// ServerProviders provides the HTTP-facing service and router.
var ServerProviders = wire.NewSet(
	provideServerMemoryService,
	provideRouter,
	NewColdStart,
	wire.Struct(new(Container), "*"),
)

// SuperSet combines all provider sets for the API container.
var SuperSet = wire.NewSet(
	ConfigProviders,
	InfrastructureProviders,
	AuthProviders,
	ServerProviders,
)

// provideLogger creates a structured logger appropriate for the environment.
// Production uses JSON format, development uses console format.
func provideLogger(cfg *config.Config) (*logging.Logger, func(), error) {
	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideZapLogger(l *logging.Logger) *zap.Logger {
	return l.Logger
}

// provideCollector returns nil when metrics are disabled.
func provideCollector(cfg *config.Config) *observability.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return observability.NewCollector(cfg.Metrics.Namespace)
}

func provideTracerProvider(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*observability.TracerProvider, func(), error) {
	tp, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	return tp, cleanup, nil
}

func provideTracer(tp *observability.TracerProvider) trace.Tracer {
	return tp.Tracer()
}

// provideSupabaseClient returns nil when nothing talks to Supabase.
func provideSupabaseClient(cfg *config.Config) (*supa.Client, error) {
	if cfg.Supabase.URL == "" {
		if cfg.NeedsSupabase() {
			return nil, fmt.Errorf("supabase url is required for store %q and verifier %q", cfg.Store.Provider, cfg.Auth.Verifier)
		}
		return nil, nil
	}
	return supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.Key)
}

// provideAWSConfig creates the AWS configuration with appropriate settings.
func provideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	if cfg.Store.Provider != config.StoreDynamoDB && !cfg.Events.Enabled {
		return aws.Config{Region: cfg.AWS.Region}, nil
	}

	// Use context with timeout for AWS config loading
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Failed calls surface to the caller; the SDK must not retry on its own.
	awsCfg, err := awsConfig.LoadDefaultConfig(loadCtx,
		awsConfig.WithRegion(cfg.AWS.Region),
		awsConfig.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// provideStore builds the configured backend and wraps it in the decorator chain.
func provideStore(
	cfg *config.Config,
	client *supa.Client,
	awsCfg aws.Config,
	logger *zap.Logger,
	collector *observability.Collector,
	tracer trace.Tracer,
) (repository.Store, error) {
	var base repository.Store
	switch cfg.Store.Provider {
	case config.StoreSupabase:
		if client == nil {
			return nil, fmt.Errorf("supabase store selected without a supabase client")
		}
		base = supabase.NewStore(client, cfg.Supabase.Table)
	case config.StoreDynamoDB:
		base = ddb.NewStore(awsDynamodb.NewFromConfig(awsCfg, func(o *awsDynamodb.Options) {
			timeout := 15 * time.Second
			if cfg.Environment == config.Development {
				timeout = 30 * time.Second // More lenient in development
			}
			o.HTTPClient = &http.Client{Timeout: timeout}
		}), cfg.Store.TableName)
	case config.StoreMemory:
		logger.Warn("using the in-memory store; memories are lost on restart")
		base = mocks.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}

	// A nil *Collector must not become a non-nil interface.
	var metrics persistence.StoreMetrics
	if collector != nil {
		metrics = collector
	}
	chain := persistence.NewDecoratorChain(cfg, logger.Named("store"), metrics, tracer)
	return chain.Decorate(base), nil
}

// providePublisher creates an EventBridge publisher, or a no-op one when events are off.
func providePublisher(cfg *config.Config, awsCfg aws.Config) events.Publisher {
	if !cfg.Events.Enabled {
		return events.NopPublisher{}
	}
	client := awsEventbridge.NewFromConfig(awsCfg, func(o *awsEventbridge.Options) {
		o.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	})
	return events.NewEventBridgePublisher(client, cfg.Events.EventBusName, cfg.Events.Source)
}

// provideAuthAPI returns nil without a Supabase client.
func provideAuthAPI(client *supa.Client) session.AuthAPI {
	if client == nil {
		return nil
	}
	return session.NewSupabaseAuth(client)
}

func provideVerifier(cfg *config.Config, api session.AuthAPI) (session.Verifier, error) {
	switch cfg.Auth.Verifier {
	case config.VerifierRemote:
		if api == nil {
			return nil, fmt.Errorf("remote verifier needs the supabase auth service")
		}
		return session.NewRemoteVerifier(api), nil
	default:
		validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: cfg.Supabase.JWTSecret})
		if err != nil {
			return nil, fmt.Errorf("failed to create jwt validator: %w", err)
		}
		return session.NewJWTVerifier(validator), nil
	}
}

// provideServerMemoryService reads identity from the request context the auth
// middleware populated.
func provideServerMemoryService(
	store repository.Store,
	logger *zap.Logger,
	collector *observability.Collector,
	publisher events.Publisher,
) memory.Service {
	return newMemoryService(store, session.ContextSource{}, logger, collector, publisher)
}

func newMemoryService(
	store repository.Store,
	sessions session.Source,
	logger *zap.Logger,
	collector *observability.Collector,
	publisher events.Publisher,
) memory.Service {
	opts := []memory.Option{
		memory.WithLogger(logger.Named("memory")),
		memory.WithPublisher(publisher),
	}
	if collector != nil {
		opts = append(opts, memory.WithMetrics(collector))
	}
	return memory.NewService(store, sessions, opts...)
}

func provideRouter(
	cfg *config.Config,
	logger *zap.Logger,
	collector *observability.Collector,
	tracer trace.Tracer,
	verifier session.Verifier,
	api session.AuthAPI,
	memories memory.Service,
) *chi.Mux {
	return NewRouter(RouterDeps{
		Config:    cfg,
		Logger:    logger,
		Collector: collector,
		Tracer:    tracer,
		Verifier:  verifier,
		Auth:      api,
		Memories:  memories,
	})
}
