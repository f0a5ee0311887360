// Package cmd defines the rootscan command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/rootscan/internal/config"
	"github.com/JakeFAU/rootscan/internal/logging"
)

type appKeyType string

const appKey appKeyType = "app"

// App carries the services every subcommand needs.
type App struct {
	Config config.Config
	Logger *zap.Logger
}

type rootFlags struct {
	configFile string
	envFile    string
}

// newApp is a variable so tests can swap in their own construction.
var newApp = func(flags rootFlags) (*App, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return &App{Config: cfg, Logger: logger}, nil
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	cmd := &cobra.Command{
		Use:   "rootscan",
		Short: "Probe domains over HTTPS and record their root documents.",
		Long: `rootscan reads a list of domains, fetches https://<domain>/ for each one
with a pool of concurrent workers, and stores connection and response
metadata in Postgres. Each domain is stored at most once.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(flags)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, app))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app, err := resolveApp(cmd.Context()); err == nil {
				_ = app.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file with DB_* settings")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newSchemaCmd())
	cmd.AddCommand(newLedgerCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func resolveApp(ctx context.Context) (*App, error) {
	app, ok := ctx.Value(appKey).(*App)
	if !ok || app == nil {
		return nil, errors.New("application services not initialized")
	}
	return app, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "rootscan:", err)
		stop()
		os.Exit(1)
	}
}
