// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sqlite opens the embedded SQLite backend used by local
// development, the operator CLI and the test suite.
//
// # Architecture
//
// Every connection is opened with the same pragmas through the DSN, so the
// settings survive database/sql recycling connections. Transactions start
// with BEGIN IMMEDIATE: the write lock is taken up front, which serializes
// writers the same way the PostgreSQL stores do with SELECT ... FOR UPDATE.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	// Registers the "sqlite" database/sql driver.
	_ "modernc.org/sqlite"

	"github.com/taibuivan/talehub/internal/platform/constants"
)

// TimeLayout is the fixed-width UTC layout used for TEXT timestamp columns.
// Fixed width keeps lexical order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const pingTimeout = 2 * time.Second

// Open connects to the database file at path and verifies the connection.
//
// # Parameters
//   - ctx: Context for the initial ping.
//   - path: Filesystem path, or an existing "file:" DSN.
//   - logger: Structured logger for connection events.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	dsn := DSN(path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	if err := Ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("sqlite_database_opened", slog.String("path", strings.TrimPrefix(path, "file:")))
	return db, nil
}

// DSN appends the connection pragmas and the immediate transaction mode to path.
func DSN(path string) string {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}

	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", constants.SQLiteBusyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Set("_txlock", "immediate")

	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return path + separator + params.Encode()
}

// Ping verifies that the database is reachable.
func Ping(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}

// FormatTime renders t for storage in a TEXT column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a value written by FormatTime.
func ParseTime(value string) (time.Time, error) {
	parsed, err := time.Parse(TimeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: bad timestamp %q: %w", value, err)
	}
	return parsed.UTC(), nil
}

// InTx runs fn inside a transaction, committing when fn returns nil.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}
