// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/peachytask/peachytask-go/internal/crypto"
)

// Store drivers selectable with STORE_DRIVER.
const (
	StoreSQLite  = "sqlite"
	StoreMySQL   = "mysql"
	StoreMongoDB = "mongodb"
)

// DevJWTSecret is the signing secret used when JWT_SECRET is unset. It is
// rejected outside development.
const DevJWTSecret = "dev-secret-change-in-production"

// Config holds all application configuration.
type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseDSN   string `env:"DATABASE_DSN" envDefault:"peachytask.db"`
	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"peachytask"`

	JWTSecret    string `env:"JWT_SECRET" envDefault:"dev-secret-change-in-production"`
	JWTAlgorithm string `env:"JWT_ALG" envDefault:"HS256"`
	JWTExpireMin int    `env:"JWT_EXPIRE_MIN" envDefault:"60"`

	CookieSecure       bool     `env:"COOKIE_SECURE" envDefault:"false"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	HashMemoryKiB   uint32 `env:"HASH_MEMORY_KIB" envDefault:"65536"`
	HashIterations  uint32 `env:"HASH_ITERATIONS" envDefault:"3"`
	HashParallelism uint8  `env:"HASH_PARALLELISM" envDefault:"2"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load parses the process environment into a validated Config.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service must not start with.
func (c *Config) Validate() error {
	var errs []error

	if !c.IsDevelopment() && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set outside development"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("JWT_ALG %q is not supported, use HS256, HS384 or HS512", c.JWTAlgorithm))
	}
	if c.JWTExpireMin <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRE_MIN must be positive"))
	}

	switch c.StoreDriver {
	case StoreSQLite, StoreMySQL:
		if c.DatabaseDSN == "" {
			errs = append(errs, fmt.Errorf("DATABASE_DSN is required for %s", c.StoreDriver))
		}
	case StoreMongoDB:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for mongodb"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER %q is not one of sqlite, mysql, mongodb", c.StoreDriver))
	}

	if c.HashIterations == 0 || c.HashParallelism == 0 || c.HashMemoryKiB < 8*uint32(c.HashParallelism) {
		errs = append(errs, errors.New("HASH_* parameters are out of range"))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not json or text", c.LogFormat))
	}

	return errors.Join(errs...)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// TokenConfig returns the session token settings.
func (c *Config) TokenConfig() crypto.TokenConfig {
	return crypto.TokenConfig{
		Secret:    c.JWTSecret,
		Algorithm: c.JWTAlgorithm,
		TTL:       time.Duration(c.JWTExpireMin) * time.Minute,
	}
}

// HashParams returns the Argon2id cost settings.
func (c *Config) HashParams() crypto.HashParams {
	params := crypto.DefaultHashParams()
	params.Memory = c.HashMemoryKiB
	params.Iterations = c.HashIterations
	params.Parallelism = c.HashParallelism
	return params
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
