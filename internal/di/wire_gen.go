// Injectors for the provider sets in wire.go, kept in wire's output order.
// Running `go generate ./internal/di` replaces this file with wire's own output.

//go:generate go run -mod=mod github.com/google/wire/cmd/wire
//go:build !wireinject
// +build !wireinject

package di

import (
	"context"

	"memorygrid-backend/internal/config"
)

// Injectors from wire.go:

// InitializeContainer builds the API container from cfg.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	logger, cleanup, err := provideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	zapLogger := provideZapLogger(logger)
	collector := provideCollector(cfg)
	tracerProvider, cleanup2, err := provideTracerProvider(ctx, cfg, zapLogger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	tracer := provideTracer(tracerProvider)
	client, err := provideSupabaseClient(cfg)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	authAPI := provideAuthAPI(client)
	verifier, err := provideVerifier(cfg, authAPI)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	awsConfig, err := provideAWSConfig(ctx, cfg)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	store, err := provideStore(cfg, client, awsConfig, zapLogger, collector, tracer)
	if err != nil {
		cleanup2()
		cleanup()
		return nil, nil, err
	}
	publisher := providePublisher(cfg, awsConfig)
	service := provideServerMemoryService(store, zapLogger, collector, publisher)
	mux := provideRouter(cfg, zapLogger, collector, tracer, verifier, authAPI, service)
	coldStart := NewColdStart()
	container := &Container{
		Config:    cfg,
		Logger:    logger,
		Router:    mux,
		Store:     store,
		Memories:  service,
		Collector: collector,
		Tracing:   tracerProvider,
		ColdStart: coldStart,
	}
	return container, func() {
		cleanup2()
		cleanup()
	}, nil
}

// InitializeClient builds the signed-in client used by the CLI.
func InitializeClient(ctx context.Context, cfg *config.Config) (*Client, func(), error) {
	logger, cleanup, err := provideLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	client, err := provideSupabaseClient(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	awsConfig, err := provideAWSConfig(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	authAPI := provideAuthAPI(client)
	zapLogger := provideZapLogger(logger)
	supabaseProvider, err := provideSessionProvider(authAPI, zapLogger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	mirror, cleanup2, err := provideMirror(supabaseProvider)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	publisher := providePublisher(cfg, awsConfig)
	diClient := &Client{
		Config:    cfg,
		Logger:    logger,
		Supabase:  client,
		AWS:       awsConfig,
		Provider:  supabaseProvider,
		Mirror:    mirror,
		Publisher: publisher,
	}
	return diClient, func() {
		cleanup2()
		cleanup()
	}, nil
}
