// Package app wires configuration into a ready-to-use service for the
// command-line entry points.
package app

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"

	"github.com/dvloznov/smartspend/internal/categorise"
	"github.com/dvloznov/smartspend/internal/config"
	"github.com/dvloznov/smartspend/internal/gcsuploader"
	infra "github.com/dvloznov/smartspend/internal/infra/bigquery"
	"github.com/dvloznov/smartspend/internal/logger"
	"github.com/dvloznov/smartspend/internal/receipts"
	"github.com/dvloznov/smartspend/internal/service"
	"github.com/dvloznov/smartspend/internal/store"
	"github.com/dvloznov/smartspend/internal/store/postgres"
	"github.com/dvloznov/smartspend/internal/store/sqlite"
)

// App owns the service and every client it was built from.
type App struct {
	Service *service.Service

	closers []func() error
}

// Open builds the service described by cfg. Optional integrations that are
// configured but fail to start are fatal; unconfigured ones are skipped.
func Open(ctx context.Context, cfg config.Config) (*App, error) {
	log := logger.FromContext(ctx)
	a := &App{}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)

	deps := service.Deps{Store: st}

	if cfg.Categories.TaxonomyFile != "" {
		t, err := categorise.LoadTaxonomy(cfg.Categories.TaxonomyFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.Open: %w", err)
		}
		deps.Categoriser = categorise.New(t)
		log.Info().Str("file", cfg.Categories.TaxonomyFile).Int("rules", len(t)).Msg("Loaded category taxonomy")
	}

	if cfg.Warehouse.Enabled {
		wh, err := infra.NewWarehouse(ctx, cfg.Warehouse.ProjectID, cfg.Warehouse.Dataset, credentials(cfg.Warehouse.CredentialsFile)...)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.Open: %w", err)
		}
		a.closers = append(a.closers, wh.Close)
		deps.Warehouse = wh
		log.Info().Str("project", cfg.Warehouse.ProjectID).Str("dataset", cfg.Warehouse.Dataset).Msg("BigQuery mirror enabled")
	}

	if cfg.Receipts.OCREnabled {
		model := cfg.Receipts.OCRModel
		if model == "" {
			model = receipts.DefaultOCRModel
		}
		ocr, err := receipts.NewGeminiExtractor(ctx, model)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.Open: %w", err)
		}
		deps.OCR = ocr
		log.Info().Str("model", model).Msg("Receipt OCR enabled")
	}

	if cfg.Receipts.Bucket != "" {
		arch, err := gcsuploader.NewArchiver(ctx, cfg.Receipts.Bucket, credentials(cfg.Receipts.CredentialsFile)...)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("app.Open: %w", err)
		}
		a.closers = append(a.closers, arch.Close)
		deps.Archiver = arch
		log.Info().Str("bucket", cfg.Receipts.Bucket).Msg("Receipt image archive enabled")
	}

	a.Service = service.New(deps)
	return a, nil
}

// OpenStore opens and migrates the configured primary store.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return st, nil
	case config.DriverPostgres:
		st, err := postgres.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("OpenStore: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("OpenStore: unknown driver %q", cfg.Driver)
	}
}

// Migrate applies the primary store's schema migrations without opening
// the service.
func Migrate(ctx context.Context, cfg config.StoreConfig) error {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.RunMigrations(cfg.SQLitePath)
	case config.DriverPostgres:
		return postgres.RunMigrations(cfg.PostgresDSN)
	default:
		return fmt.Errorf("Migrate: unknown driver %q", cfg.Driver)
	}
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func credentials(file string) []option.ClientOption {
	if file == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(file)}
}
