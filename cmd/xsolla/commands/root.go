package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/xsolla-sdk/internal/app"
	"github.com/florianilch/xsolla-sdk/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	cmd := &cli.Command{
		Name:    "xsolla",
		Usage:   "Xsolla Login and Store client",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars("XSOLLA_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel|otlp-http|otlp-grpc)",
				Value: observability.FormatText,
			},
			&cli.StringFlag{
				Name:  "storage",
				Usage: "refresh token storage (file|keyring|env)",
			},
		},
		Commands: []*cli.Command{
			authCommand(),
			accountCommand(),
			inventoryCommand(),
			cartCommand(),
			overviewCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// loadConfig builds the configuration from the config file, the environment
// and flags explicitly set on the command line.
func loadConfig(cmd *cli.Command, environ func() []string) (*app.Config, error) {
	overrides := map[string]any{}
	flagKeys := map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
		"storage":    "auth.storage",
	}
	for flag, key := range flagKeys {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}

	cfg, err := app.LoadConfig(cmd.String("config"), overrides, environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setup loads config, installs logging and creates the App. The returned
// cleanup flushes logs.
func setup(ctx context.Context, cmd *cli.Command) (*app.App, func(), error) {
	cfg, err := loadConfig(cmd, os.Environ)
	if err != nil {
		return nil, nil, err
	}

	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}

	// Set up observability before creating app
	shutdown, err := observability.Instrument(ctx, level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}
	flushLogs := func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs: %v\n", err)
		}
	}

	application, err := app.New(cfg)
	if err != nil {
		flushLogs()
		return nil, nil, fmt.Errorf("failed to create app: %w", err)
	}

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
		defer cancel()
		if err := application.Close(closeCtx); err != nil {
			slog.ErrorContext(closeCtx, "failed to persist credentials", "error", err)
		}
		flushLogs()
	}

	return application, cleanup, nil
}

// withApp adapts an action that needs the App.
func withApp(action func(context.Context, *cli.Command, *app.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		application, cleanup, err := setup(ctx, cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		return action(ctx, cmd, application)
	}
}
