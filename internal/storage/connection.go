package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for connection management.
var (
	// ErrNoDatabaseConnection is returned when a store is constructed with a
	// nil connection.
	ErrNoDatabaseConnection = errors.New("database connection is required")
)

const pingTimeout = 5 * time.Second

// Connection wraps the shared *sql.DB pool.
//
// It is an explicitly constructed value injected into each store at
// construction - never a singleton reached via ambient lookup. Units of work
// acquire and release pool connections through the standard library's
// database/sql semantics.
type Connection struct {
	DB *sql.DB
}

// NewConnection opens a PostgreSQL connection pool with the configured limits
// and verifies connectivity with a ping.
func NewConnection(cfg *Config) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid storage configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{DB: db}, nil
}

// Ping verifies the database is reachable. Used by readiness probes.
func (c *Connection) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close releases the connection pool.
func (c *Connection) Close() error {
	return c.DB.Close()
}
