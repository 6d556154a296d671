package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// OpenSQLite opens (creating if necessary) the embedded SQLite database
// at path and brings the schema up to date. Pass ":memory:" for an
// in-memory database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("unable to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}

	// A single connection keeps writes serialized and makes :memory:
	// behave as one database instead of one per pooled connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to enable foreign keys: %w", err)
	}

	if err := migrateUp(ctx, db, "sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to migrate database: %w", err)
	}

	return db, nil
}
