//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"memorygrid-backend/internal/config"

	"github.com/google/wire"
)

// InitializeContainer builds the API container from cfg.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}

// InitializeClient builds the signed-in client used by the CLI.
func InitializeClient(ctx context.Context, cfg *config.Config) (*Client, func(), error) {
	wire.Build(ClientSet)
	return nil, nil, nil
}
