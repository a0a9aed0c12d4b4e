// Package config handles application configuration from environment variables
package config

import (
	"fmt"
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

	// Game settings
	RefundTimeout time.Duration // How long a pending game holds buy-ins before refunds unlock
	SweepInterval time.Duration // How often the stale-game sweeper runs
	MinBuyIn      int64         // Smallest accepted buy-in, in chips
	MaxBuyIn      int64         // Largest accepted buy-in, in chips

	// Security
	AdminSecret  string // Admin API secret (deposits, operational endpoints)
	RateLimitRPM int

	// Tracing
	OTLPEndpoint string // OTLP gRPC collector address (optional, tracing off if not set)
}

// Defaults
const (
	DefaultPort          = "8080"
	DefaultEnv           = "development"
	DefaultLogLevel      = "info"
	DefaultRefundTimeout = 24 * time.Hour
	DefaultSweepInterval = time.Minute
	DefaultMinBuyIn      = 1
	DefaultMaxBuyIn      = 1_000_000_000
	DefaultRateLimit     = 100
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", DefaultPort),
		Env:           getEnv("ENV", DefaultEnv),
		LogLevel:      getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:   os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RefundTimeout: getEnvDuration("REFUND_TIMEOUT", DefaultRefundTimeout),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", DefaultSweepInterval),
		MinBuyIn:      getEnvInt64("MIN_BUY_IN", DefaultMinBuyIn),
		MaxBuyIn:      getEnvInt64("MAX_BUY_IN", DefaultMaxBuyIn),
		AdminSecret:   os.Getenv("ADMIN_SECRET"),
		RateLimitRPM:  int(getEnvInt64("RATE_LIMIT_RPM", int64(DefaultRateLimit))),
		OTLPEndpoint:  os.Getenv("OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if c.RefundTimeout <= 0 {
		return fmt.Errorf("REFUND_TIMEOUT must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	if c.MinBuyIn <= 0 {
		return fmt.Errorf("MIN_BUY_IN must be positive")
	}
	if c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("MAX_BUY_IN must be >= MIN_BUY_IN")
	}
	if c.IsProduction() && c.AdminSecret == "" {
		return fmt.Errorf("ADMIN_SECRET is required in production")
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

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
