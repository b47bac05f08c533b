package dbx

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/Abraxas-365/relay/pkg/errx"
	"github.com/Abraxas-365/relay/pkg/logx"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

var (
	ErrRegistry = errx.NewRegistry("DBX")

	CodeMigrationFailed = ErrRegistry.Register("MIGRATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Database migration failed")
)

// MigrateUp applies every pending migration found at sourceURL
// (e.g. "file://migrations"). An up-to-date schema is not an error.
func MigrateUp(db *sql.DB, sourceURL string) error {
	m, err := newMigrator(db, sourceURL)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ErrRegistry.NewWithCause(CodeMigrationFailed, err).WithDetail("direction", "up")
	}

	version, dirty, _ := m.Version()
	logx.WithFields(logx.Fields{
		"version": version,
		"dirty":   dirty,
	}).Info("  ✅ Database schema up to date")
	return nil
}

// Reset drops every migrated object and re-applies the schema. Test use only.
func Reset(db *sql.DB, sourceURL string) error {
	m, err := newMigrator(db, sourceURL)
	if err != nil {
		return err
	}

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ErrRegistry.NewWithCause(CodeMigrationFailed, err).WithDetail("direction", "down")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return ErrRegistry.NewWithCause(CodeMigrationFailed, err).WithDetail("direction", "up")
	}
	return nil
}

func newMigrator(db *sql.DB, sourceURL string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeMigrationFailed, err).WithDetail("stage", "driver")
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return nil, ErrRegistry.NewWithCause(CodeMigrationFailed, err).WithDetail("stage", "source")
	}
	return m, nil
}
