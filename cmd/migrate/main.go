// Command migrate applies the BigQuery warehouse DDL migrations found in
// migrations/bigquery and records them in a schema_migrations ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/dvloznov/smartspend/internal/config"
	infra "github.com/dvloznov/smartspend/internal/infra/bigquery"
	"github.com/dvloznov/smartspend/internal/logger"
)

var (
	configPath    = flag.String("config", "", "Path to config file (defaults to SMARTSPEND_CONFIG or ~/.config/smartspend/config.toml)")
	projectID     = flag.String("project", "", "GCP project ID (defaults to warehouse.project_id)")
	datasetID     = flag.String("dataset", "", "BigQuery dataset ID (defaults to warehouse.dataset)")
	appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to migrations directory")
	dryRun        = flag.Bool("dry-run", false, "List pending migrations without applying them")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	log := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if *projectID == "" {
		*projectID = cfg.Warehouse.ProjectID
	}
	if *datasetID == "" {
		*datasetID = cfg.Warehouse.Dataset
	}
	if *projectID == "" {
		log.Fatal().Msg("-project flag or warehouse.project_id is required")
	}

	ctx := logger.WithContext(context.Background(), log)

	var opts []option.ClientOption
	if cfg.Warehouse.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Warehouse.CredentialsFile))
	}

	if err := run(ctx, log, opts); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

func run(ctx context.Context, log zerolog.Logger, opts []option.ClientOption) error {
	dir, err := resolveMigrationsDir(*migrationsDir)
	if err != nil {
		return err
	}

	migrations, skipped, err := infra.LoadMigrations(os.DirFS(dir), *projectID, *datasetID)
	if err != nil {
		return err
	}
	for _, name := range skipped {
		log.Warn().Str("file", name).Msg("Skipping file with invalid format")
	}
	log.Info().Int("count", len(migrations)).Str("dir", dir).Msg("Found migration files")

	client, err := bigquery.NewClient(ctx, *projectID, opts...)
	if err != nil {
		return fmt.Errorf("creating BigQuery client: %w", err)
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	m := infra.NewMigrator(client, *projectID, *datasetID, *appliedBy)
	if err := m.EnsureLedger(ctx); err != nil {
		return err
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	pending, drifted := infra.Plan(migrations, applied)
	for _, d := range drifted {
		log.Warn().Str("file", d.Filename).Msg("Applied migration has changed since it ran")
	}

	for _, mig := range pending {
		if *dryRun {
			log.Info().Str("file", mig.Filename).Msg("[PENDING]")
			continue
		}
		log.Info().Str("file", mig.Filename).Msg("[RUN]")
		if err := m.Apply(ctx, mig); err != nil {
			return err
		}
		log.Info().Str("file", mig.Filename).Msg("[OK]")
	}

	switch {
	case len(pending) == 0:
		log.Info().Msg("No new migrations to apply. Dataset is up to date.")
	case !*dryRun:
		log.Info().Int("count", len(pending)).Msg("Successfully applied migrations")
	}
	return nil
}

// resolveMigrationsDir accepts dir relative to the working directory or to
// the repository root when run from cmd/migrate.
func resolveMigrationsDir(dir string) (string, error) {
	for _, candidate := range []string{dir, "../../" + dir} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("migrations directory not found: %s", dir)
}
