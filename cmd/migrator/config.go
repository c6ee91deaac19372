package main

import (
	"errors"
	"fmt"

	"github.com/vaxtrack-io/vaxtrack/internal/config"
	"github.com/vaxtrack-io/vaxtrack/internal/storage"
)

// ErrEmptyDatabaseURL indicates DATABASE_URL was not provided.
var ErrEmptyDatabaseURL = errors.New("DATABASE_URL cannot be empty")

// ErrEmptyMigrationTable indicates MIGRATION_TABLE was set to an empty value.
var ErrEmptyMigrationTable = errors.New("MIGRATION_TABLE cannot be empty")

// Config holds all configuration for the migration tool.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// MigrationTable is the name of the table to track migrations.
	MigrationTable string
}

// LoadConfig loads configuration from environment variables with sensible defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    config.GetEnvStr("DATABASE_URL", ""),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", "schema_migrations"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrEmptyDatabaseURL
	}

	if c.MigrationTable == "" {
		return ErrEmptyMigrationTable
	}

	return nil
}

// String returns a string representation of the configuration (safe for logging).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DatabaseURL: %s, MigrationTable: %s}",
		storage.MaskDatabaseURL(c.DatabaseURL), c.MigrationTable)
}
