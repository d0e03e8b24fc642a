package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SMARTSPEND_STORE_DRIVER.
const EnvPrefix = "SMARTSPEND"

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Store      StoreConfig      `mapstructure:"store"`
	Warehouse  WarehouseConfig  `mapstructure:"warehouse"`
	Receipts   ReceiptsConfig   `mapstructure:"receipts"`
	Categories CategoriesConfig `mapstructure:"categories"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig selects and configures the transaction store.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// WarehouseConfig configures the optional BigQuery mirror.
type WarehouseConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	ProjectID       string `mapstructure:"project_id"`
	Dataset         string `mapstructure:"dataset"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ReceiptsConfig configures OCR and image archiving.
type ReceiptsConfig struct {
	Bucket          string `mapstructure:"bucket"`
	OCRModel        string `mapstructure:"ocr_model"`
	OCREnabled      bool   `mapstructure:"ocr_enabled"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// CategoriesConfig points at an optional taxonomy override.
type CategoriesConfig struct {
	TaxonomyFile string `mapstructure:"taxonomy_file"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.sqlite_path", filepath.Join(defaultDataDir(), "smartspend.db"))
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("warehouse.enabled", false)
	v.SetDefault("warehouse.project_id", "")
	v.SetDefault("warehouse.dataset", "smartspend")
	v.SetDefault("warehouse.credentials_file", "")
	v.SetDefault("receipts.bucket", "")
	v.SetDefault("receipts.ocr_model", "gemini-2.5-flash")
	v.SetDefault("receipts.ocr_enabled", false)
	v.SetDefault("receipts.credentials_file", "")
	v.SetDefault("categories.taxonomy_file", "")
}

// Load reads configuration from an optional .env file, an optional TOML
// config file and the environment. An explicit path must exist; otherwise
// SMARTSPEND_CONFIG or ~/.config/smartspend/config.toml is used when present.
func Load(path string) (Config, error) {
	// .env only seeds variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("toml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(userHome(), ".config", "smartspend"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("config: store.sqlite_path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("config: store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Warehouse.Enabled && c.Warehouse.ProjectID == "" {
		return errors.New("config: warehouse.project_id is required when the warehouse is enabled")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server.port %d", c.Server.Port)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

func userHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func defaultDataDir() string {
	return filepath.Join(userHome(), ".local", "share", "smartspend")
}
