package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// ErrMissingDatabaseURL is returned when the persistent store is selected without a DSN.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL must be set when STORE_DRIVER is sqlite")

// Config struct for environment variables.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"INFO"`

	StoreDriver   string        `envconfig:"STORE_DRIVER" default:"memory"`
	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	StatsCacheTTL time.Duration `envconfig:"STATS_CACHE_TTL" default:"5s"`

	ArtifactsDir      string `envconfig:"ARTIFACTS_DIR" default:"downloads"`
	ArtifactRateLimit int64  `envconfig:"ARTIFACT_RATE_LIMIT" default:"0"`

	StaticDir            string `envconfig:"STATIC_DIR"`
	FrontendURL          string `envconfig:"FRONTEND_URL"`
	NewsletterWebhookURL string `envconfig:"NEWSLETTER_WEBHOOK_URL"`
	MaxBodySize          int64  `envconfig:"MAX_BODY_SIZE" default:"10485760"`

	Telemetry struct {
		Enabled      bool   `default:"true"`
		ServiceName  string `split_words:"true" default:"wavesos_web"`
		OTLPEndpoint string `envconfig:"OTLP_ENDPOINT"`
	}

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:5000"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"0s"`
		IdleTimeout     time.Duration `split_words:"true" default:"60s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// LoadConfig reads environment variables and populates the Config struct.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks combinations envconfig tags cannot express.
func (c *Config) Validate() error {
	c.Environment = strings.ToLower(c.Environment)
	c.StoreDriver = strings.ToLower(c.StoreDriver)

	switch c.Environment {
	case EnvProduction, EnvDevelopment:
	default:
		return fmt.Errorf("invalid ENVIRONMENT %q: want %q or %q", c.Environment, EnvProduction, EnvDevelopment)
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: want %q or %q", c.StoreDriver, StoreMemory, StoreSQLite)
	}

	if c.ArtifactRateLimit < 0 {
		return fmt.Errorf("ARTIFACT_RATE_LIMIT must not be negative, got %d", c.ArtifactRateLimit)
	}

	if c.MaxBodySize <= 0 {
		return fmt.Errorf("MAX_BODY_SIZE must be positive, got %d", c.MaxBodySize)
	}

	return nil
}

// IsProduction reports whether the service runs with production behavior.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvProduction)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
