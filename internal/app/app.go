package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/startstudio/harvest-mcp/internal/credentials"
	"github.com/startstudio/harvest-mcp/internal/harvest"
	"github.com/startstudio/harvest-mcp/internal/harvestid"
	"github.com/startstudio/harvest-mcp/internal/mcpserver"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// AuthSource identifies where effective credentials come from.
type AuthSource string

const (
	AuthSourceNone        AuthSource = "none"
	AuthSourceEnvironment AuthSource = "environment"
	AuthSourceOAuth       AuthSource = "oauth"
)

// AuthStatus describes the current authentication configuration.
type AuthStatus struct {
	Source      AuthSource
	AccountID   string
	TokenExpiry time.Time
}

// App wires the credential store, token authority, request gateway and
// MCP server together and drives their lifecycle.
type App struct {
	cfg       *Config
	store     credentials.Store
	authority *harvestid.Authority
	gateway   *harvest.Client
	server    *mcpserver.Server
}

// New creates a new App instance.
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	authority := harvestid.NewAuthority(store)
	gateway := harvest.NewClient(store, authority,
		harvest.WithBaseURL(cfg.API.BaseURL),
		harvest.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
	)

	return &App{
		cfg:       cfg,
		store:     store,
		authority: authority,
		gateway:   gateway,
		server:    mcpserver.New(gateway, Version),
	}, nil
}

// Start serves MCP on stdio and blocks until the context is cancelled or
// the client closes the stream.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	slog.InfoContext(gCtx, "starting MCP server on stdio", "version", Version)

	g.Go(func() error {
		if err := a.server.Serve(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("application stopped")
	return nil
}

// AuthConfigured reports whether a serving process would have usable
// credentials: either the environment pair or a persisted access token.
func (a *App) AuthConfigured(ctx context.Context) bool {
	if os.Getenv(harvest.EnvAPIKey) != "" && os.Getenv(harvest.EnvAccountID) != "" {
		return true
	}
	return a.store.Load(ctx).AccessToken != ""
}

// AuthStatus reports where effective credentials come from. The
// environment pair wins over the persisted record, matching the request
// gateway's resolution order.
func (a *App) AuthStatus(ctx context.Context) AuthStatus {
	if os.Getenv(harvest.EnvAPIKey) != "" && os.Getenv(harvest.EnvAccountID) != "" {
		return AuthStatus{
			Source:    AuthSourceEnvironment,
			AccountID: os.Getenv(harvest.EnvAccountID),
		}
	}

	rec := a.store.Load(ctx)
	if rec.AccessToken != "" {
		return AuthStatus{
			Source:      AuthSourceOAuth,
			AccountID:   rec.AccountID,
			TokenExpiry: rec.ExpiresAt(),
		}
	}

	return AuthStatus{Source: AuthSourceNone}
}

// RunAuthFlow persists the client credentials and drives the interactive
// authorization flow. The credentials are saved before the flow runs so a
// failed attempt can be retried without re-entering them.
func (a *App) RunAuthFlow(ctx context.Context, clientID, clientSecret string) (*harvestid.Account, error) {
	a.store.Update(ctx, credentials.Partial{
		ClientID:     &clientID,
		ClientSecret: &clientSecret,
	})

	flow := harvestid.NewFlow(a.store,
		harvestid.WithCallbackAddress(a.cfg.OAuth.CallbackHost, int(a.cfg.OAuth.CallbackPort)),
		harvestid.WithCallbackPath(a.cfg.OAuth.CallbackPath),
	)

	return flow.Run(ctx, clientID, clientSecret)
}
