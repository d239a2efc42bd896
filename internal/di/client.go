package di

import (
	"context"
	"fmt"
	"sync"

	"memorygrid-backend/internal/config"
	"memorygrid-backend/internal/events"
	"memorygrid-backend/internal/infrastructure/persistence"
	"memorygrid-backend/internal/logging"
	"memorygrid-backend/internal/repository"
	"memorygrid-backend/internal/repository/ddb"
	"memorygrid-backend/internal/repository/mocks"
	"memorygrid-backend/internal/repository/supabase"
	"memorygrid-backend/internal/service/memory"
	"memorygrid-backend/internal/session"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsDynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/wire"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// ClientSet provides the single-user client used by the CLI.
var ClientSet = wire.NewSet(
	ConfigProviders,
	provideSupabaseClient,
	provideAWSConfig,
	provideAuthAPI,
	provideSessionProvider,
	provideMirror,
	providePublisher,
	wire.Struct(new(Client), "*"),
)

// Client is one signed-in user's view of the memory grid. The provider owns the
// session; the mirror is the read side the memory service consults on every call.
type Client struct {
	Config    *config.Config
	Logger    *logging.Logger
	Supabase  *supa.Client
	AWS       aws.Config
	Provider  *session.SupabaseProvider
	Mirror    *session.Mirror
	Publisher events.Publisher

	localOnce sync.Once          `wire:"-"`
	local     *mocks.MemoryStore `wire:"-"`
}

func provideSessionProvider(api session.AuthAPI, logger *zap.Logger) (*session.SupabaseProvider, error) {
	if api == nil {
		return nil, fmt.Errorf("the client needs supabase auth; set SUPABASE_URL and SUPABASE_KEY")
	}
	return session.NewSupabaseProvider(api, logger.Named("session")), nil
}

func provideMirror(provider *session.SupabaseProvider) (*session.Mirror, func(), error) {
	mirror := session.NewMirror()
	detach, err := mirror.Attach(provider)
	if err != nil {
		return nil, nil, err
	}
	return mirror, detach, nil
}

// Memories builds a memory service for the current session. Call it after the
// session is restored: the Supabase store authenticates as the signed-in user.
func (c *Client) Memories(ctx context.Context) (memory.Service, error) {
	base, err := c.store(ctx)
	if err != nil {
		return nil, err
	}
	chain := persistence.NewDecoratorChain(c.Config, c.Logger.Named("store"), nil, nil)
	return newMemoryService(chain.Decorate(base), c.Mirror, c.Logger.Logger, nil, c.Publisher), nil
}

func (c *Client) store(ctx context.Context) (repository.Store, error) {
	switch c.Config.Store.Provider {
	case config.StoreSupabase:
		client := c.Supabase
		if s, _ := c.Mirror.Session(ctx); s != nil && s.AccessToken != "" {
			userClient, err := supabase.NewUserClient(c.Config.Supabase.URL, c.Config.Supabase.Key, s.AccessToken)
			if err != nil {
				return nil, err
			}
			client = userClient
		}
		return supabase.NewStore(client, c.Config.Supabase.Table), nil
	case config.StoreDynamoDB:
		return ddb.NewStore(awsDynamodb.NewFromConfig(c.AWS), c.Config.Store.TableName), nil
	case config.StoreMemory:
		c.localOnce.Do(func() { c.local = mocks.NewMemoryStore() })
		return c.local, nil
	default:
		return nil, fmt.Errorf("unknown store provider %q", c.Config.Store.Provider)
	}
}
