package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/smartspend/internal/config"
	"github.com/dvloznov/smartspend/internal/identity"
)

func sqliteConfig(t *testing.T) config.Config {
	return config.Config{
		Store: config.StoreConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "nested", "dir", "smartspend.db"),
		},
	}
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, sqliteConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Service.OCREnabled())
	_, err = a.Service.ImportCSV(ctx, identity.New("alice"), strings.NewReader("Date,Description,Amount\n01/01/2025,TESCO,-1.00\n"), "t.csv", true)
	require.NoError(t, err)
}

func TestOpen_CustomTaxonomy(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig(t)
	cfg.Categories.TaxonomyFile = filepath.Join(t.TempDir(), "taxonomy.yaml")
	require.NoError(t, os.WriteFile(cfg.Categories.TaxonomyFile, []byte("categories:\n  - category: Pets\n    keywords: [vet, petshop]\n"), 0o644))

	a, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Service.ImportCSV(ctx, identity.New("alice"), strings.NewReader("Date,Description,Amount\n01/01/2025,CITY VET,-40.00\n"), "t.csv", true)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Pets": 1}, res.ByCategory)
}

func TestOpen_InvalidTaxonomy(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Categories.TaxonomyFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), config.StoreConfig{Driver: "mysql"})
	assert.Error(t, err)
	assert.Error(t, Migrate(context.Background(), config.StoreConfig{Driver: "mysql"}))
}

func TestMigrate_SQLite(t *testing.T) {
	cfg := sqliteConfig(t).Store
	require.NoError(t, Migrate(context.Background(), cfg))
	require.NoError(t, Migrate(context.Background(), cfg))
	_, err := os.Stat(cfg.SQLitePath)
	assert.NoError(t, err)
}
