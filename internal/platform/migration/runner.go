// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration provides a thin wrapper around golang-migrate for
// running database schema migrations.
//
// # Architecture
//
// This package belongs to the Infrastructure layer. It enforces schema
// idempotency during application startup, ensuring the database is always
// in the correct state before traffic is served.
//
// The SQL files are embedded per driver, so the API binary and the CLI carry
// their own schema and never depend on the working directory.
package migration

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// sqlite driver (modernc.org/sqlite) registers the "sqlite" scheme.
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/taibuivan/talehub/internal/platform/config"
)

//go:embed sql/postgres/*.sql sql/sqlite/*.sql
var migrations embed.FS

// RunUp applies all pending UP migrations.
//
// # Parameters
//   - driver: config.DriverPostgres or config.DriverSQLite.
//   - dsn: A postgres:// URL, or a SQLite file path.
//   - logger: Structured logger for migration events.
func RunUp(driver, dsn string, logger *slog.Logger) error {
	migrator, err := newMigrator(driver, dsn)
	if err != nil {
		return err
	}
	defer func() {
		sourceError, dbError := migrator.Close()
		if sourceError != nil {
			logger.Error("migration_source_close_failed", slog.Any("error", sourceError))
		}
		if dbError != nil {
			logger.Error("migration_db_close_failed", slog.Any("error", dbError))
		}
	}()

	// Enable verbose logging via the slog bridge.
	migrator.Log = &migrateLogger{logger: logger}

	currentVersion, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("migration: failed to get current version: %w", err)
	}

	if isDirty {
		return fmt.Errorf("migration: database is in a dirty state at version %d (manual intervention required)", currentVersion)
	}

	logger.Info("migration_started",
		slog.String("driver", driver),
		slog.Int("current_version", int(currentVersion)),
	)

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date")
			return nil
		}
		return fmt.Errorf("migration: up failed: %w", err)
	}

	newVersion, _, _ := migrator.Version()
	logger.Info("migration_successful",
		slog.Int("from_version", int(currentVersion)),
		slog.Int("to_version", int(newVersion)),
	)

	return nil
}

func newMigrator(driver, dsn string) (*migrate.Migrate, error) {
	databaseURL, err := DatabaseURL(driver, dsn)
	if err != nil {
		return nil, err
	}

	sub, err := fs.Sub(migrations, "sql/"+driver)
	if err != nil {
		return nil, fmt.Errorf("migration: no embedded migrations for %s: %w", driver, err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("migration: failed to open embedded source: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("migration: failed to initialize: %w", err)
	}
	return migrator, nil
}

// DatabaseURL maps an application DSN to the URL golang-migrate expects for driver.
func DatabaseURL(driver, dsn string) (string, error) {
	switch driver {
	case config.DriverPostgres:
		return convertToPgx5DSN(dsn), nil
	case config.DriverSQLite:
		return convertToSQLiteURL(dsn), nil
	default:
		return "", fmt.Errorf("migration: unsupported driver %q", driver)
	}
}

// convertToPgx5DSN ensures the DSN uses the pgx5:// scheme required by golang-migrate/v4.
func convertToPgx5DSN(dsn string) string {
	const pgx5Prefix = "pgx5://"

	if strings.HasPrefix(dsn, pgx5Prefix) {
		return dsn
	}

	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return pgx5Prefix + strings.TrimPrefix(dsn, prefix)
		}
	}

	return dsn
}

// convertToSQLiteURL turns a plain path (or file: DSN) into a sqlite:// URL.
// Query parameters are dropped; the migrate driver applies its own pragmas.
func convertToSQLiteURL(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return dsn
	}

	path := strings.TrimPrefix(dsn, "file:")
	if index := strings.IndexByte(path, '?'); index >= 0 {
		path = path[:index]
	}
	return "sqlite://" + path
}

// migrateLogger adapts golang-migrate's logger interface to slog.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

// Printf implements migrate.Logger.
func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Verbose implements migrate.Logger.
func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
