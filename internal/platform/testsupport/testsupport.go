// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package testsupport builds migrated databases for package tests.
//
// Each SQLite call gets its own temporary file, so tests can run in parallel
// and exercise real locking instead of a mocked repository. PostgreSQL tests
// share one database named by TALEHUB_TEST_POSTGRES_URL and are skipped when
// it is unset.
package testsupport

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/talehub/internal/platform/config"
	"github.com/taibuivan/talehub/internal/platform/migration"
	"github.com/taibuivan/talehub/internal/platform/postgres"
	"github.com/taibuivan/talehub/internal/platform/sqlite"
	"github.com/taibuivan/talehub/pkg/uuid"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewSQLite opens a fresh, fully migrated database that is closed at test cleanup.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "talehub.db")
	require.NoError(t, migration.RunUp(config.DriverSQLite, path, Logger()))

	db, err := sqlite.Open(context.Background(), path, Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// PostgresURLEnv names the DSN used by PostgreSQL store tests.
const PostgresURLEnv = "TALEHUB_TEST_POSTGRES_URL"

// NewPostgres migrates the database named by [PostgresURLEnv] and returns a
// pool closed at test cleanup. Rows are never truncated; tests must use their
// own fresh IDs.
func NewPostgres(t testing.TB) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(PostgresURLEnv)
	if dsn == "" {
		t.Skipf("%s is not set", PostgresURLEnv)
	}

	require.NoError(t, migration.RunUp(config.DriverPostgres, dsn, Logger()))

	pool, err := postgres.NewPool(context.Background(), dsn, postgres.PoolSettings{}, Logger())
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// SeedUser inserts a member account row and returns its ID.
func SeedUser(t testing.TB, db *sql.DB, username string) string {
	t.Helper()
	return SeedUserWithRole(t, db, username, "member")
}

// SeedUserWithRole inserts an account row holding role and returns its ID.
func SeedUserWithRole(t testing.TB, db *sql.DB, username, role string) string {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		"INSERT INTO useraccount (id, username, displayname, role, createdat) VALUES (?, ?, ?, ?, ?)",
		id, username, username, role, sqlite.FormatTime(time.Now()),
	)
	require.NoError(t, err)
	return id
}

// SeedStory inserts a draft story owned by a fresh author and returns its ID.
func SeedStory(t testing.TB, db *sql.DB, title string) string {
	t.Helper()
	return SeedStoryBy(t, db, SeedUserWithRole(t, db, "author-"+uuid.New(), "author"), title)
}

// SeedStoryBy inserts a draft story owned by authorID and returns its ID.
func SeedStoryBy(t testing.TB, db *sql.DB, authorID, title string) string {
	t.Helper()

	id := uuid.New()
	now := sqlite.FormatTime(time.Now())
	_, err := db.Exec(
		"INSERT INTO story (id, authorid, title, slug, createdat, updatedat) VALUES (?, ?, ?, ?, ?, ?)",
		id, authorID, title, id, now, now,
	)
	require.NoError(t, err)
	return id
}

// SeedPostgresUser inserts an account row holding role and returns its ID.
func SeedPostgresUser(t testing.TB, pool *pgxpool.Pool, role string) string {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		"INSERT INTO useraccount (id, username, displayname, role, createdat) VALUES ($1, $2, $3, $4, $5)",
		id, "pg-"+id, "pg", role, time.Now().UTC(),
	)
	require.NoError(t, err)
	return id
}
