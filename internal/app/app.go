// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package app is the composition root shared by the API server and the
operator CLI.

It opens the configured relational backend and builds every domain
service on top of it with explicit constructor injection.

Usage:

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
	    return err
	}
	defer backend.Close()

	services := app.NewServices(backend, nil, logger)
*/
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/talehub/internal/core/chapter"
	"github.com/taibuivan/talehub/internal/core/story"
	"github.com/taibuivan/talehub/internal/library/reading"
	"github.com/taibuivan/talehub/internal/platform/config"
	pgstore "github.com/taibuivan/talehub/internal/platform/postgres"
	"github.com/taibuivan/talehub/internal/platform/sqlite"
	"github.com/taibuivan/talehub/internal/users/account"
)

// # Backend

// Backend holds the open connection for exactly one storage driver.
type Backend struct {
	Driver string
	Pool   *pgxpool.Pool
	DB     *sql.DB
}

// OpenBackend connects to the driver selected by cfg. Migrations are not run here.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	switch cfg.DatabaseDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{Driver: config.DriverSQLite, DB: db}, nil

	case config.DriverPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, pgstore.PoolSettings{
			MaxConns:         cfg.DatabaseMaxConns,
			StatementTimeout: cfg.DatabaseStatementTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &Backend{Driver: config.DriverPostgres, Pool: pool}, nil
	}

	return nil, fmt.Errorf("app: unsupported database driver %q", cfg.DatabaseDriver)
}

// SQLiteBackend wraps an already open SQLite handle.
func SQLiteBackend(db *sql.DB) *Backend {
	return &Backend{Driver: config.DriverSQLite, DB: db}
}

// Ping checks the underlying connection.
func (backend *Backend) Ping(ctx context.Context) error {
	if backend.Pool != nil {
		return pgstore.Ping(ctx, backend.Pool)
	}
	return sqlite.Ping(ctx, backend.DB)
}

// Close releases the underlying connection.
func (backend *Backend) Close() error {
	if backend.Pool != nil {
		backend.Pool.Close()
		return nil
	}
	return backend.DB.Close()
}

// # Repositories

// Repositories is the driver-specific set of stores.
type Repositories struct {
	Accounts account.Repository
	Stories  story.Repository
	Chapters chapter.Repository
	Reads    reading.Repository
}

// NewRepositories picks the store implementations matching the backend driver.
func NewRepositories(backend *Backend) Repositories {
	if backend.Pool != nil {
		return Repositories{
			Accounts: account.NewPostgresRepository(backend.Pool),
			Stories:  story.NewPostgresRepository(backend.Pool),
			Chapters: chapter.NewPostgresRepository(backend.Pool),
			Reads:    reading.NewPostgresRepository(backend.Pool),
		}
	}

	return Repositories{
		Accounts: account.NewSQLiteRepository(backend.DB),
		Stories:  story.NewSQLiteRepository(backend.DB),
		Chapters: chapter.NewSQLiteRepository(backend.DB),
		Reads:    reading.NewSQLiteRepository(backend.DB),
	}
}

// # Services

// Services groups the domain services built on one backend.
type Services struct {
	Accounts *account.Service
	Stories  *story.Service
	Chapters *chapter.Service
	Reading  *reading.Service
}

// NewServices wires every service. A nil cache disables chapter list caching.
func NewServices(backend *Backend, cache chapter.ListCache, logger *slog.Logger) *Services {
	repos := NewRepositories(backend)

	accounts := account.NewService(repos.Accounts, logger)
	stories := story.NewService(repos.Stories, logger)
	chapters := chapter.NewService(repos.Chapters, stories, cache, logger)

	return &Services{
		Accounts: accounts,
		Stories:  stories,
		Chapters: chapters,
		Reading:  reading.NewService(repos.Reads, accounts, stories, logger),
	}
}
