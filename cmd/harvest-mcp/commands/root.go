package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/startstudio/harvest-mcp/internal/app"
	"github.com/startstudio/harvest-mcp/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "harvest-mcp",
		Usage: "Harvest time tracking over the Model Context Protocol",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			setupCommand(),
			statusCommand(),
		},
		// Invocation without a subcommand starts the server, matching how
		// MCP clients launch the binary.
		Action: serveAction,
	}

	return cmd.Run(ctx, args)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the MCP server on stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "api--base-url",
				Usage: "Harvest API base URL",
				Value: app.DefaultConfigAPIBaseURL,
			},
			&cli.StringFlag{
				Name:  "credentials--storage",
				Usage: "credential storage backend (file|keyring)",
				Value: string(app.DefaultConfigCredentialStorage),
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApplication(cmd)
	if err != nil {
		return err
	}

	if !application.AuthConfigured(ctx) {
		fmt.Fprintln(os.Stderr, "Authentication not configured. Please run:")
		fmt.Fprintln(os.Stderr, "  harvest-mcp setup")
		fmt.Fprintln(os.Stderr, "or set HARVEST_API_KEY and HARVEST_ACCOUNT_ID environment variables.")
		return nil
	}

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show how authentication is configured",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := newApplication(cmd)
			if err != nil {
				return err
			}

			status := application.AuthStatus(ctx)
			switch status.Source {
			case app.AuthSourceEnvironment:
				fmt.Printf("Authenticated via environment variables (account %s).\n", status.AccountID)
			case app.AuthSourceOAuth:
				fmt.Printf("Authenticated via OAuth (account %s).\n", status.AccountID)
				if !status.TokenExpiry.IsZero() {
					fmt.Printf("Access token expires at %s.\n", status.TokenExpiry.Format(time.RFC3339))
				}
			default:
				fmt.Println("Authentication not configured. Run `harvest-mcp setup`.")
			}
			return nil
		},
	}
}

// newApplication loads configuration, instruments logging and builds the
// App. Shared by every command.
func newApplication(cmd *cli.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Set up observability before creating app
	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}

	return application, nil
}
