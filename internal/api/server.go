// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api assembles the HTTP surface: the middleware chain, the health
probes and the /api/v1 route groups of every domain handler.

Only this package and cmd/api touch [http.Server].
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/talehub/internal/core/chapter"
	"github.com/taibuivan/talehub/internal/core/story"
	"github.com/taibuivan/talehub/internal/library/reading"
	"github.com/taibuivan/talehub/internal/platform/apperr"
	"github.com/taibuivan/talehub/internal/platform/config"
	"github.com/taibuivan/talehub/internal/platform/constants"
	"github.com/taibuivan/talehub/internal/platform/middleware"
	"github.com/taibuivan/talehub/internal/platform/respond"
	"github.com/taibuivan/talehub/internal/users/account"
)

// Server owns the listener for the router built by [NewRouter].
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// Handlers is everything the router mounts.
type Handlers struct {
	Liveness  http.HandlerFunc
	Readiness http.HandlerFunc

	Account *account.Handler
	Story   *story.Handler
	Chapter *chapter.Handler
	Reading *reading.Handler
}

// NewServer binds the router to cfg.ServerPort. ctx bounds background work
// started by the middleware, such as the rate limiter sweeper.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *Server {
	return &Server{
		log: log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           NewRouter(ctx, cfg, log, verifier, h),
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// NewRouter builds the routing tree without binding a listener.
//
// Authenticate runs before the limiter so signed-in callers are limited per
// user rather than per address.
func NewRouter(ctx context.Context, cfg *config.Config, log *slog.Logger, verifier middleware.TokenVerifier, h Handlers) *chi.Mux {
	limiter := middleware.NewRateLimiter(ctx,
		middleware.RateLimitPolicy{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		middleware.RateLimitPolicy{RPS: cfg.WriteRateLimitRPS, Burst: cfg.WriteRateLimitBurst},
	)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID(),
		middleware.StructuredLogger(log),
		middleware.PanicRecovery(log),
		chimw.Timeout(constants.GlobalRequestTimeout),
		middleware.CORS(cfg),
		middleware.Authenticate(verifier),
		limiter.Middleware,
		chimw.CleanPath,
	)

	router.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, apperr.NotFound("Route"))
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, request *http.Request) {
		respond.JSON(writer, http.StatusMethodNotAllowed, respond.ErrorEnvelope{
			Error: request.Method + " is not allowed on " + request.URL.Path,
			Code:  "METHOD_NOT_ALLOWED",
		})
	})

	router.Get("/health", h.Liveness)
	router.Get("/ready", h.Readiness)

	router.Route("/api/v1", func(api chi.Router) {
		h.Story.RegisterRoutes(api)
		h.Chapter.RegisterRoutes(api)
		h.Reading.RegisterRoutes(api)
		api.Mount("/", h.Account.Routes())
	})

	return router
}

// ListenAndServe blocks until the server is shut down or fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown waits up to timeout for in-flight requests to finish.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
