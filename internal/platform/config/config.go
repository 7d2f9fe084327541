// Copyright (c) 2026 Talehub. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Storage Drivers

const (
	// DriverPostgres selects the pgx-backed repositories.
	DriverPostgres = "postgres"

	// DriverSQLite selects the embedded modernc SQLite repositories.
	DriverSQLite = "sqlite"
)

// # Configuration Schema

// Config holds all runtime configuration for the Talehub API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational storage. DatabaseURL is a postgres:// DSN or a SQLite file path.
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL,required,notEmpty"`

	// Postgres pool tuning; ignored by the SQLite backend.
	DatabaseMaxConns         int           `env:"DATABASE_MAX_CONNS"         envDefault:"25"`
	DatabaseStatementTimeout time.Duration `env:"DATABASE_STATEMENT_TIMEOUT" envDefault:"30s"`

	// Key-Value Cache (Redis). Empty disables the chapter list cache.
	RedisURL        string        `env:"REDIS_URL"`
	ChapterCacheTTL time.Duration `env:"CHAPTER_CACHE_TTL" envDefault:"5m"`

	// Tokens are issued by the identity service; we only verify them.
	JWTPubKeyPath string `env:"JWT_PUBLIC_KEY_PATH"`

	// Per-caller token buckets; zero selects the built-in defaults.
	RateLimitRPS        float64 `env:"RATE_LIMIT_RPS"`
	RateLimitBurst      int     `env:"RATE_LIMIT_BURST"`
	WriteRateLimitRPS   float64 `env:"WRITE_RATE_LIMIT_RPS"`
	WriteRateLimitBurst int     `env:"WRITE_RATE_LIMIT_BURST"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	return LoadWith(nil)
}

// LoadWith parses the process environment with overrides applied on top.
// Empty override values are ignored, so unset CLI flags fall through to the environment.
func LoadWith(overrides map[string]string) (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	environment := env.ToMap(os.Environ())
	for key, value := range overrides {
		if value != "" {
			environment[key] = value
		}
	}

	// This will fail if any field marked with 'required' is missing.
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects combinations env tags cannot express.
func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported DATABASE_DRIVER %q (want %q or %q)", c.DatabaseDriver, DriverPostgres, DriverSQLite)
	}

	if c.DatabaseMaxConns < 1 {
		return fmt.Errorf("config: DATABASE_MAX_CONNS must be at least 1, got %d", c.DatabaseMaxConns)
	}

	if c.DatabaseStatementTimeout <= 0 {
		return fmt.Errorf("config: DATABASE_STATEMENT_TIMEOUT must be positive, got %s", c.DatabaseStatementTimeout)
	}

	if c.ChapterCacheTTL <= 0 {
		return fmt.Errorf("config: CHAPTER_CACHE_TTL must be positive, got %s", c.ChapterCacheTTL)
	}

	if c.RateLimitRPS < 0 || c.WriteRateLimitRPS < 0 || c.RateLimitBurst < 0 || c.WriteRateLimitBurst < 0 {
		return fmt.Errorf("config: rate limits cannot be negative")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesSQLite reports whether the embedded backend is selected.
func (c *Config) UsesSQLite() bool {
	return c.DatabaseDriver == DriverSQLite
}

// AllowsOrigin reports whether a browser origin may call the API outside development.
//
// First-party *.talehub.app origins are always allowed; EXTRA_ORIGINS adds a
// comma-separated list of exact matches.
func (c *Config) AllowsOrigin(origin string) bool {
	if strings.HasSuffix(origin, ".talehub.app") || origin == "https://talehub.app" {
		return true
	}

	for _, extra := range strings.Split(c.ExtraOrigins, ",") {
		if extra = strings.TrimSpace(extra); extra != "" && extra == origin {
			return true
		}
	}

	return false
}
