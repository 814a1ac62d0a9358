package db

import (
	"context"
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

//go:embed migrations
var migrationsFS embed.FS

// WithMigrator opens a dedicated connection for rawURL, hands a migrator over
// the embedded migrations to fn, and closes everything afterwards.
func WithMigrator(ctx context.Context, rawURL string, fn func(m *migrate.Migrate) error) error {
	conn, driver, err := Open(ctx, rawURL)
	if err != nil {
		return err
	}

	migrator, err := newMigrator(conn, driver)
	if err != nil {
		_ = conn.Close()
		return err
	}
	// Closing the migrator also closes conn.
	defer func() {
		_, _ = migrator.Close()
	}()

	return fn(migrator)
}

func newMigrator(conn *sql.DB, driver string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", driver, err)
	}

	var instance database.Driver
	switch driver {
	case DriverPostgres:
		instance, err = postgres.WithInstance(conn, &postgres.Config{})
	case DriverSQLite:
		instance, err = sqlite.WithInstance(conn, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s migration driver: %w", driver, err)
	}

	return migrate.NewWithInstance("iofs", source, driver, instance)
}

// MigrateUp applies every pending migration.
func MigrateUp(ctx context.Context, rawURL string) error {
	return WithMigrator(ctx, rawURL, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back steps migrations, or all of them when steps is zero.
func MigrateDown(ctx context.Context, rawURL string, steps int) error {
	return WithMigrator(ctx, rawURL, func(m *migrate.Migrate) error {
		var err error
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return nil
	})
}
