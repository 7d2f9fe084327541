// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package postgres owns the pgx connection pool and the transaction helper
// the Postgres stores run their multi-statement writes through.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/talehub/internal/platform/constants"
)

const (
	defaultMaxConns         = 25
	defaultStatementTimeout = 30 * time.Second

	maxConnLifetime   = time.Hour
	maxConnIdleTime   = 10 * time.Minute
	healthCheckPeriod = time.Minute
	connectTimeout    = 5 * time.Second
	pingTimeout       = 2 * time.Second
)

// PoolSettings tunes the pool. Zero values select the defaults.
type PoolSettings struct {
	MaxConns         int
	StatementTimeout time.Duration
}

func (s PoolSettings) withDefaults() PoolSettings {
	if s.MaxConns <= 0 {
		s.MaxConns = defaultMaxConns
	}
	if s.StatementTimeout <= 0 {
		s.StatementTimeout = defaultStatementTimeout
	}
	return s
}

// NewPool connects to dsn and pings once before returning.
//
// Every session starts with statement_timeout set, so a story lock held by a
// stuck chapter write is released by the server rather than by the client.
func NewPool(ctx context.Context, dsn string, settings PoolSettings, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid DSN: %w", err)
	}

	settings = settings.withDefaults()
	poolConfig.MaxConns = int32(settings.MaxConns)
	poolConfig.MinConns = int32(max(1, settings.MaxConns/5))
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	runtime := poolConfig.ConnConfig.RuntimeParams
	runtime["application_name"] = constants.AppName
	runtime["statement_timeout"] = strconv.FormatInt(settings.StatementTimeout.Milliseconds(), 10)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}

	if err := Ping(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("postgres_pool_connected",
		slog.Int("max_conns", int(poolConfig.MaxConns)),
		slog.Int("min_conns", int(poolConfig.MinConns)),
		slog.Duration("statement_timeout", settings.StatementTimeout),
	)
	return pool, nil
}

// Ping checks one pooled connection within a short deadline.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("postgres: ping failed: %w", err)
	}
	return nil
}

// InTx runs fn in a transaction and commits when it returns nil.
func InTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}
