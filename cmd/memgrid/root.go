package main

import (
	"context"
	"errors"
	"fmt"

	"memorygrid-backend/internal/config"
	"memorygrid-backend/internal/di"
	"memorygrid-backend/internal/session"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// clientFactory assembles the signed-out client from configuration.
type clientFactory func(ctx context.Context, cfg *config.Config) (*di.Client, func(), error)

func initializeClient(ctx context.Context, cfg *config.Config) (*di.Client, func(), error) {
	return di.InitializeClient(ctx, cfg)
}

type cli struct {
	factory clientFactory

	configPath  string
	sessionPath string
	verbose     bool

	client   *di.Client
	sessions session.FileStore
	cleanup  func()
}

func newCLI(factory clientFactory) *cli {
	return &cli{factory: factory}
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "memgrid",
		Short:         "Share and browse memories on the humanity memory grid",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $MEMGRID_CONFIG or "+config.DefaultPath+")")
	root.PersistentFlags().StringVar(&c.sessionPath, "session-file", "", "where the signed-in session is kept (default ~/.memgrid/session.json)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		c.signUpCmd(),
		c.signInCmd(),
		c.signOutCmd(),
		c.whoAmICmd(),
		c.listCmd(),
		c.addCmd(),
		c.exportCmd(),
	)
	return root
}

func (c *cli) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	loader := config.DefaultLoader()
	if c.configPath != "" {
		loader = config.NewLoader(c.configPath)
	}
	cfg, err := loader.WithDefaults(func(cfg *config.Config) {
		// The CLI asks the auth service about its token instead of holding the JWT secret.
		cfg.Auth.Verifier = config.VerifierRemote
		cfg.Logging.Format = "console"
		cfg.Logging.Level = "warn"
	}).Load()
	if err != nil {
		return err
	}
	if c.verbose {
		cfg.Logging.Level = "debug"
	}

	client, cleanup, err := c.factory(ctx, cfg)
	if err != nil {
		return err
	}
	c.client, c.cleanup = client, cleanup

	path := c.sessionPath
	if path == "" {
		if path, err = session.DefaultFilePath(); err != nil {
			return err
		}
	}
	c.sessions = session.FileStore{Path: path}
	return c.restore(ctx)
}

// restore resumes the saved session. Failures leave the CLI signed out.
func (c *cli) restore(ctx context.Context) error {
	saved, err := c.sessions.Load()
	if err != nil || saved == nil {
		return err
	}

	logger := c.client.Logger
	if _, err := c.client.Provider.Restore(ctx, saved.AccessToken, saved.ExpiresAt); err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			logger.Info("saved session expired", zap.String("user_id", saved.UserID))
			return c.sessions.Clear()
		}
		logger.Warn("could not restore session", zap.Error(err))
	}
	return nil
}

func (c *cli) close() {
	if c.cleanup != nil {
		c.cleanup()
		c.cleanup = nil
	}
}

// current returns the signed-in session, or nil.
func (c *cli) current(ctx context.Context) *session.Session {
	s, err := c.client.Mirror.Session(ctx)
	if err != nil {
		return nil
	}
	return s
}

func (c *cli) printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
