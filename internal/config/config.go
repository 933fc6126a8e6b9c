// Package config loads localstore settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "LOCALSTORE_"

// Backend names.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Config holds all localstore settings.
type Config struct {
	Backend   string         `yaml:"backend" env:"BACKEND"`
	Namespace string         `yaml:"namespace" env:"NAMESPACE"`
	Memory    MemoryConfig   `yaml:"memory" envPrefix:"MEMORY_"`
	SQLite    SQLiteConfig   `yaml:"sqlite" envPrefix:"SQLITE_"`
	DynamoDB  DynamoDBConfig `yaml:"dynamodb" envPrefix:"DYNAMODB_"`
	Logging   LoggingConfig  `yaml:"logging" envPrefix:"LOG_"`
}

// MemoryConfig configures the in-memory backend.
type MemoryConfig struct {
	// QuotaBytes caps the store size; zero means unlimited.
	QuotaBytes int `yaml:"quota_bytes" env:"QUOTA_BYTES"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

// DynamoDBConfig configures the DynamoDB backend.
type DynamoDBConfig struct {
	Table           string `yaml:"table" env:"TABLE"`
	Region          string `yaml:"region" env:"REGION"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	Partition       string `yaml:"partition" env:"PARTITION"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendMemory,
		SQLite: SQLiteConfig{
			Path: "localstore.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty or missing), a .env file in the working directory if one
// exists, and LOCALSTORE_* environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv exports variables from a .env file without overriding ones
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings the selected backend needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
		if c.Memory.QuotaBytes < 0 {
			return fmt.Errorf("memory quota must not be negative")
		}
	case BackendSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("dynamodb table is required")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}
