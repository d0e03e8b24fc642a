package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.NotEmpty(t, cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Warehouse.Enabled)
	assert.Equal(t, ":8080", cfg.Server.Addr())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9090
read_timeout = "5s"

[store]
driver = "sqlite"
sqlite_path = "/tmp/ss.db"

[log]
level = "debug"
format = "json"

[categories]
taxonomy_file = "taxonomy.yaml"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "/tmp/ss.db", cfg.Store.SQLitePath)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "taxonomy.yaml", cfg.Categories.TaxonomyFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "[server]\nport = 9090\n")
	t.Setenv("SMARTSPEND_SERVER_PORT", "7070")
	t.Setenv("SMARTSPEND_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Driver: DriverSQLite, SQLitePath: "x.db"},
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "oracle" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"sqlite without path", func(c *Config) { c.Store.SQLitePath = "" }},
		{"warehouse without project", func(c *Config) { c.Warehouse.Enabled = true }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
