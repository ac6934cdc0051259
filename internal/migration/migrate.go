// Package migration applies the SQL files under migrations/ with golang-migrate.
package migration

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrator wraps a golang-migrate instance.
type Migrator struct {
	migrate *migrate.Migrate
	logger  *slog.Logger
}

// New opens the migrations directory and the database at databaseURL.
func New(databaseURL, migrationsPath string, logger *slog.Logger) (*Migrator, error) {
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Migrator{migrate: m, logger: logger.With("component", "migration")}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	m.logger.Info("migrations_up_started")

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("migrations_up_to_date")
			return nil
		}
		return fmt.Errorf("migration up failed: %w", err)
	}
	return m.logCurrent("migrations_up_completed")
}

// Down rolls back n migrations; n <= 0 rolls back all of them.
func (m *Migrator) Down(n int) error {
	m.logger.Info("migrations_down_started", slog.Int("steps", n))

	var err error
	if n > 0 {
		err = m.migrate.Steps(-n)
	} else {
		err = m.migrate.Down()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("migrations_nothing_to_roll_back")
			return nil
		}
		return fmt.Errorf("migration down failed: %w", err)
	}
	return m.logCurrent("migrations_down_completed")
}

// Version returns the applied version, 0 when the schema is empty.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied without running anything. It is the
// way out of a dirty state after a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("migration_version_forced", slog.Int("version", version))

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}

func (m *Migrator) logCurrent(msg string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info(msg, slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	return nil
}
