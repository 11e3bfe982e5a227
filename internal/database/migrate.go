package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNoMigrations is returned by MigrationVersion before the first migration is applied.
var ErrNoMigrations = errors.New("no migrations applied")

func withMigrator(databaseURL, path string, fn func(m *migrate.Migrate) error) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid migrations path: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(abs), "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return fn(m)
}

// MigrateUp applies every pending migration under path. A database already at the latest
// version is not an error.
func MigrateUp(databaseURL, path string) error {
	return withMigrator(databaseURL, path, func(m *migrate.Migrate) error {
		upErr := m.Up()
		if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", upErr)
		}

		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			log.Println("migrations: database is up to date (no migrations applied)")
		case err != nil:
			return fmt.Errorf("failed to get migration version: %w", err)
		case dirty:
			return fmt.Errorf("migration version %d is dirty, fix the schema and force the version", version)
		case upErr != nil:
			log.Printf("migrations: database is up to date (version %d)", version)
		default:
			log.Printf("migrations: applied successfully (version %d)", version)
		}
		return nil
	})
}

// MigrateDown rolls back steps migrations, or all of them when steps is not positive.
func MigrateDown(databaseURL, path string, steps int) error {
	return withMigrator(databaseURL, path, func(m *migrate.Migrate) error {
		var err error
		if steps <= 0 {
			err = m.Down()
		} else {
			err = m.Steps(-steps)
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		log.Println("migrations: rolled back")
		return nil
	})
}

// MigrationVersion reports the applied schema version.
func MigrationVersion(databaseURL, path string) (version uint, dirty bool, err error) {
	err = withMigrator(databaseURL, path, func(m *migrate.Migrate) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return ErrNoMigrations
		}
		if verr != nil {
			return fmt.Errorf("failed to get migration version: %w", verr)
		}
		return nil
	})
	return version, dirty, err
}
