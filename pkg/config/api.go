package config

import (
	"errors"
	"strings"
	"time"
)

// APIConfig holds runtime configuration for the ledger API service.
type APIConfig struct {
	Environment     string
	Addr            string
	DatabaseURL     string
	JWTSecret       string
	BasePath        string
	LogLevel        string
	MigrateOnStart  bool
	ShutdownTimeout time.Duration
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() (APIConfig, error) {
	return LoadAPIConfigFrom(nil)
}

// LoadAPIConfigFrom constructs an APIConfig from lookup. Unparsable values
// keep their defaults and are reported in the returned error.
func LoadAPIConfigFrom(lookup Lookup) (APIConfig, error) {
	r := NewReader(lookup)
	cfg := APIConfig{
		Environment:     r.String("APP_ENV", "development"),
		Addr:            r.String("API_ADDR", ":4000"),
		DatabaseURL:     r.String("DATABASE_URL", "postgres://ledger:ledger@db:5432/ledger?sslmode=disable"),
		JWTSecret:       r.String("JWT_SECRET", ""),
		BasePath:        NormalizeBasePath(r.String("BASE_PATH", "")),
		LogLevel:        r.OneOf("LOG_LEVEL", "info", "debug", "info", "warn", "error"),
		MigrateOnStart:  r.Bool("MIGRATE_ON_START", true),
		ShutdownTimeout: r.Seconds("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),
	}
	return cfg, r.Err()
}

// Validate reports configuration that would prevent the service from starting.
func (c APIConfig) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("API_ADDR is required"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

// NormalizeBasePath returns the prefix with a single leading slash and no
// trailing slash. An empty or "/" prefix yields "".
func NormalizeBasePath(prefix string) string {
	trimmed := strings.Trim(strings.TrimSpace(prefix), "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}
