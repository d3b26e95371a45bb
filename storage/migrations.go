package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// RunMigrations applies all pending migrations for the given dialect
// ("postgres" or "sqlite") and returns the resulting schema version.
func RunMigrations(db *sql.DB, dialect string) (uint, error) {
	var (
		driver database.Driver
		err    error
	)
	switch dialect {
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case "sqlite":
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return 0, fmt.Errorf("unknown migration dialect %q", dialect)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to create %s migration driver: %w", dialect, err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+dialect)
	if err != nil {
		return 0, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		return 0, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, nil
}
