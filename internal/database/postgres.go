package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/jackc/pgx/v4/stdlib" // database/sql driver for migrations
)

// DB represents a PostgreSQL database connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewPostgres creates a connection pool for the given URL and brings
// the schema up to date before returning.
func NewPostgres(ctx context.Context, dbURL string) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing database URL: %w", err)
	}

	// Set some reasonable pool limits
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	// goose works against database/sql, so migrations run through the
	// pgx stdlib driver on a short-lived connection.
	migrateDB, err := sql.Open("pgx", dbURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to open migration connection: %w", err)
	}
	defer migrateDB.Close()

	if err := migrateUp(ctx, migrateDB, "postgres"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to migrate database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}
