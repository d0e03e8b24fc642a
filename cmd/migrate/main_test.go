package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infra "github.com/dvloznov/smartspend/internal/infra/bigquery"
)

func TestResolveMigrationsDir(t *testing.T) {
	dir, err := resolveMigrationsDir("migrations/bigquery")
	require.NoError(t, err)
	assert.Equal(t, "../../migrations/bigquery", dir)

	_, err = resolveMigrationsDir("does/not/exist")
	assert.Error(t, err)
}

func TestRepositoryMigrationsAreWellFormed(t *testing.T) {
	dir := filepath.Join("..", "..", "migrations", "bigquery")
	migrations, skipped, err := infra.LoadMigrations(os.DirFS(dir), "proj", "ds")
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.NotEmpty(t, migrations)

	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "versions must be contiguous")
		assert.NotContains(t, m.SQL, "{{")
		assert.Contains(t, m.SQL, "`proj.ds.")
	}
}
