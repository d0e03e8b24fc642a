package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dvloznov/smartspend/internal/app"
	"github.com/dvloznov/smartspend/internal/config"
	"github.com/dvloznov/smartspend/internal/identity"
	"github.com/dvloznov/smartspend/internal/logger"
	"github.com/dvloznov/smartspend/internal/service"
)

// cliEnv carries global flags and lazily opened resources between the
// root command and its subcommands.
type cliEnv struct {
	configPath string
	dbPath     string
	user       string
	jsonOut    bool

	cfg config.Config
	log zerolog.Logger
}

func newRootCommand() *cobra.Command {
	env := &cliEnv{}

	rootCmd := &cobra.Command{
		Use:   "smartspend",
		Short: "Personal finance analytics for bank CSV exports",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.load(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&env.configPath, "config", "", "config file (default SMARTSPEND_CONFIG or ~/.config/smartspend/config.toml)")
	flags.StringVar(&env.dbPath, "db", "", "SQLite database path (overrides store.sqlite_path)")
	flags.StringVar(&env.user, "user", os.Getenv(config.EnvPrefix+"_USER"), "user id to act as (default $SMARTSPEND_USER)")
	flags.BoolVar(&env.jsonOut, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(
		newImportCommand(env),
		newTransactionsCommand(env),
		newDashboardCommand(env),
		newInsightsCommand(env),
		newAnomaliesCommand(env),
		newForecastCommand(env),
		newImportsCommand(env),
		newReceiptCommand(env),
		newMigrateCommand(env),
	)

	return rootCmd
}

func (e *cliEnv) load(stderr io.Writer) error {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return err
	}
	if e.dbPath != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.SQLitePath = e.dbPath
	}
	e.cfg = cfg
	e.log = logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format, stderr)
	return nil
}

// withService opens the application for the acting user, runs fn and
// releases every client afterwards.
func (e *cliEnv) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.Service, id identity.Identity) error) error {
	id := identity.New(e.user)
	if err := id.Validate(); err != nil {
		return fmt.Errorf("--user is required: %w", err)
	}

	ctx := logger.WithContext(cmd.Context(), logger.ForUser(e.log, id.UserID))
	a, err := app.Open(ctx, e.cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a.Service, id)
}
