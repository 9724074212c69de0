// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// External ML predictor
	PredictorURL       string // Base URL of the prediction service (optional, disabled if not set)
	PredictorTimeout   time.Duration
	PredictorAlgorithm string // default model selector sent with each request

	// History fed to the risk scorer per assessment
	HistoryLimit int

	// Security / limits
	RateLimitRPM int
	AdminSecret  string

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)
}

// Defaults
const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultPredictorTimeout = 3 * time.Second
	DefaultAlgorithm        = "xgboost"
	DefaultHistoryLimit     = 100
	DefaultRateLimit        = 60
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		PredictorURL:       os.Getenv("PREDICTOR_URL"),
		PredictorTimeout:   getEnvDuration("PREDICTOR_TIMEOUT", DefaultPredictorTimeout),
		PredictorAlgorithm: getEnv("PREDICTOR_ALGORITHM", DefaultAlgorithm),
		HistoryLimit:       getEnvInt("HISTORY_LIMIT", DefaultHistoryLimit),
		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		AdminSecret:        os.Getenv("ADMIN_SECRET"),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if c.PredictorURL != "" {
		u, err := url.Parse(c.PredictorURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("PREDICTOR_URL must be an absolute URL: %q", c.PredictorURL)
		}
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be positive, got %d", c.HistoryLimit)
	}
	if c.PredictorTimeout <= 0 {
		return fmt.Errorf("PREDICTOR_TIMEOUT must be positive, got %s", c.PredictorTimeout)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
