// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTP      HTTPConfig
	CORS      CORSConfig
	Recorder  RecorderConfig
	Overpass  OverpassConfig
	Telemetry TelemetryConfig
}

type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// CORSConfig is the cross-origin policy handed to the router at startup.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envDefault:"GET,POST,OPTIONS" envSeparator:","`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envDefault:"*" envSeparator:","`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
}

// RecorderConfig controls the optional request audit store.
type RecorderConfig struct {
	Enabled bool   `env:"SAVE_REQUESTS" envDefault:"false"`
	Driver  string `env:"RECORDER_DRIVER" envDefault:"postgres"`
	DSN     string `env:"RECORDER_DSN"`
}

// OverpassConfig enables region lookups when URL is set.
type OverpassConfig struct {
	URL     string        `env:"OVERPASS_URL"`
	Timeout time.Duration `env:"OVERPASS_TIMEOUT" envDefault:"5s"`
}

type TelemetryConfig struct {
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
	OTelEnabled    bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OTelEndpoint   string `env:"OTEL_ENDPOINT"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		errs = append(errs, errors.New("HTTP_ADDR must not be empty"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.Recorder.Enabled {
		switch c.Recorder.Driver {
		case DriverPostgres, DriverSQLite:
		default:
			errs = append(errs, fmt.Errorf("RECORDER_DRIVER %q is not supported", c.Recorder.Driver))
		}
		if strings.TrimSpace(c.Recorder.DSN) == "" {
			errs = append(errs, errors.New("RECORDER_DSN is required when SAVE_REQUESTS is enabled"))
		}
	}
	if c.Overpass.URL != "" && c.Overpass.Timeout <= 0 {
		errs = append(errs, errors.New("OVERPASS_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
