// Package remotestore implements the durable shared cache tier. The
// daemon side is a SQLite store with embedded migrations; the client
// side (see client.go) talks to the daemon's HTTP API and is the only
// part an end-user device touches. Entries here have no expiry — they
// are superseded by newer writes for the same key, never aged out.
package remotestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultDBPath returns the default path for the materials database.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".medgenie", "materials.db"), nil
}

// OpenSQLite opens a SQLite database connection with WAL mode enabled
// and appropriate pragmas for performance and reliability.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	// Ensure the directory exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database "+
			"directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer, multiple readers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := configurePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w",
			err)
	}

	return db, nil
}

// configurePragmas sets additional SQLite pragmas for optimal
// performance.
func configurePragmas(db *sql.DB) error {
	pragmas := []string{
		// NORMAL provides good durability with better performance
		// than FULL.
		"PRAGMA synchronous = NORMAL",

		// Keep temporary tables in memory.
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w",
				pragma, err)
		}
	}

	return nil
}
