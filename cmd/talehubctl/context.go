// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/taibuivan/talehub/internal/app"
	"github.com/taibuivan/talehub/internal/platform/config"
)

type commandContext struct {
	driverFlag   *string
	databaseFlag *string
	verboseFlag  *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(driverFlag, databaseFlag *string, verboseFlag *bool) *commandContext {
	return &commandContext{
		driverFlag:   driverFlag,
		databaseFlag: databaseFlag,
		verboseFlag:  verboseFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.LoadWith(map[string]string{
			"DATABASE_DRIVER": *c.driverFlag,
			"DATABASE_URL":    *c.databaseFlag,
		})
	})
	return c.config, c.configErr
}

// logger writes text logs to stderr so stdout stays parseable.
func (c *commandContext) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verboseFlag != nil && *c.verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// withServices opens the configured backend for the duration of fn.
// The CLI never uses the Redis list cache; mutations it makes expire from
// the server's cache by TTL.
func (c *commandContext) withServices(ctx context.Context, fn func(*app.Services) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger := c.logger()
	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	return fn(app.NewServices(backend, nil, logger))
}
