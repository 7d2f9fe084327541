// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Talehub HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Run database migrations (idempotent).
//  4. Connect to PostgreSQL (pgxpool) or open the SQLite file.
//  5. Connect to Redis when configured.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/talehub/internal/api"
	"github.com/taibuivan/talehub/internal/app"
	"github.com/taibuivan/talehub/internal/core/chapter"
	"github.com/taibuivan/talehub/internal/core/story"
	"github.com/taibuivan/talehub/internal/library/reading"
	"github.com/taibuivan/talehub/internal/platform/config"
	"github.com/taibuivan/talehub/internal/platform/constants"
	"github.com/taibuivan/talehub/internal/platform/middleware"
	"github.com/taibuivan/talehub/internal/platform/migration"
	redisstore "github.com/taibuivan/talehub/internal/platform/redis"
	"github.com/taibuivan/talehub/internal/platform/sec"
	"github.com/taibuivan/talehub/internal/users/account"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("driver", cfg.DatabaseDriver),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseDriver, cfg.DatabaseURL, log), "run migrations")

	// ── 4. Relational storage ─────────────────────────────────────────────
	backend, err := app.OpenBackend(startupCtx, cfg, log)
	must(log, err, "open database")
	defer func() {
		log.Info("database_closing", slog.String("driver", backend.Driver))
		if cerr := backend.Close(); cerr != nil {
			log.Error("database close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Redis (optional) ───────────────────────────────────────────────
	var (
		rdb   *redis.Client
		cache chapter.ListCache
	)
	if cfg.RedisURL != "" {
		rdb, err = redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("redis_client_closing")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()
		cache = chapter.NewRedisListCache(rdb, cfg.ChapterCacheTTL, log)
	} else {
		log.Warn("redis_disabled", slog.String("reason", "REDIS_URL is empty"))
	}

	// ── 6. Token verification (optional) ──────────────────────────────────
	var verifier middleware.TokenVerifier
	if cfg.JWTPubKeyPath != "" {
		tokenVerifier, err := sec.NewTokenVerifier(cfg.JWTPubKeyPath, constants.AuthIssuer)
		must(log, err, "initialize jwt verifier")
		verifier = tokenVerifier
	} else {
		log.Warn("jwt_disabled", slog.String("reason", "JWT_PUBLIC_KEY_PATH is empty, all requests are anonymous"))
	}

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	checks := []api.HealthCheck{{Name: backend.Driver, Check: backend.Ping}}
	if rdb != nil {
		checks = append(checks, api.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
		})
	}
	liveness, readiness := api.NewHealthHandlers(log, checks...)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	services := app.NewServices(backend, cache, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Account:   account.NewHandler(services.Accounts),
		Story:     story.NewHandler(services.Stories),
		Chapter:   chapter.NewHandler(services.Chapters),
		Reading:   reading.NewHandler(services.Reading),
	}

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, verifier, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped")
}

// newLogger builds the process-wide JSON logger and installs it as the default.
func newLogger(level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String(constants.FieldApp, constants.AppName))
	slog.SetDefault(log)
	return log
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned
// and handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
