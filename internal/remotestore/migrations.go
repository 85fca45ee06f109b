package remotestore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
)

// LatestMigrationVersion is the latest migration version of the
// materials database. This is used to implement downgrade protection
// for the daemon.
//
// NOTE: This MUST be updated when a new migration is added.
const LatestMigrationVersion uint = 1

// ErrMigrationDowngrade is returned when a database downgrade is
// detected.
var ErrMigrationDowngrade = errors.New("database downgrade detected")

// sqlSchemas is an embedded file system containing the SQL migration
// files. The migrations are embedded at compile time for portability.
//
//go:embed migrations/*.sql
var sqlSchemas embed.FS

// migrationLogger wraps slog.Logger to implement the migrate.Logger
// interface.
type migrationLogger struct {
	log *slog.Logger
}

// Printf implements the migrate.Logger interface.
func (m *migrationLogger) Printf(format string, v ...any) {
	format = strings.TrimRight(format, "\n")
	m.log.Info(fmt.Sprintf(format, v...))
}

// Verbose returns true when verbose logging is enabled.
func (m *migrationLogger) Verbose() bool {
	return true
}

// applyMigrations brings the materials database schema up to the
// latest embedded migration version, refusing to run against a
// database that is newer than this binary knows about.
func applyMigrations(db *sql.DB, log *slog.Logger) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	src, err := httpfs.New(http.FS(sqlSchemas), "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	sqlMigrate, err := migrate.NewWithInstance(
		"migrations", src, "materials", driver,
	)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	version, dirty, err := sqlMigrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("unable to determine current migration "+
			"version: %w", err)
	}

	// A dirty version means a previous migration did not complete;
	// refuse to proceed without manual intervention.
	if dirty {
		return fmt.Errorf("database is in a dirty state at "+
			"version %v, manual intervention required", version)
	}

	// Down migrations may drop data, so block downgrades outright.
	if version > LatestMigrationVersion {
		return fmt.Errorf("%w: db_version=%v, "+
			"latest_migration_version=%v",
			ErrMigrationDowngrade, version,
			LatestMigrationVersion)
	}

	log.Info("Attempting to apply migration(s)",
		"current_db_version", version,
		"latest_migration_version", LatestMigrationVersion,
	)

	sqlMigrate.Log = &migrationLogger{log}

	if err := sqlMigrate.Up(); err != nil &&
		!errors.Is(err, migrate.ErrNoChange) {

		return err
	}

	version, _, err = sqlMigrate.Version()
	if err != nil {
		return fmt.Errorf("unable to get db version after "+
			"migration: %w", err)
	}
	log.Info("Database version after migration",
		"current_db_version", version,
	)

	return nil
}
