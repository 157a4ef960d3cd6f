// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

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

	// Pipeline settings
	ILThresholdBps           int // default detection threshold for new subjects
	HealthFactorThresholdBps int
	CheckTimeoutSeconds      int // per detector source / analyzer provider call
	DispatchTimeoutSeconds   int // per adapter submission
	DefaultDailyTxLimit      int
	DefaultMaxSlippageBps    int

	// Security
	AdminSecret  string // Admin API secret
	RateLimitRPS int
	CORSOrigins  []string

	// Tracing
	OTLPEndpoint string // OTLP gRPC collector, empty disables tracing
}

// Defaults for a new deployment.
const (
	DefaultPort                 = "8080"
	DefaultEnv                  = "development"
	DefaultLogLevel             = "info"
	DefaultILThresholdBps       = 1000  // 10% IL
	DefaultHealthFactorBps      = 13000 // factor 1.3
	DefaultCheckTimeoutSec      = 10
	DefaultDispatchTimeoutSec   = 30
	DefaultDailyTxLimit         = 10
	DefaultMaxSlippageBps       = 50
	DefaultRateLimit            = 100
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                     getEnv("PORT", DefaultPort),
		Env:                      getEnv("ENV", DefaultEnv),
		LogLevel:                 getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:              os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		ILThresholdBps:           getEnvInt("IL_THRESHOLD_BPS", DefaultILThresholdBps),
		HealthFactorThresholdBps: getEnvInt("HEALTH_FACTOR_THRESHOLD_BPS", DefaultHealthFactorBps),
		CheckTimeoutSeconds:      getEnvInt("CHECK_TIMEOUT_SECONDS", DefaultCheckTimeoutSec),
		DispatchTimeoutSeconds:   getEnvInt("DISPATCH_TIMEOUT_SECONDS", DefaultDispatchTimeoutSec),
		DefaultDailyTxLimit:      getEnvInt("DEFAULT_DAILY_TX_LIMIT", DefaultDailyTxLimit),
		DefaultMaxSlippageBps:    getEnvInt("DEFAULT_MAX_SLIPPAGE_BPS", DefaultMaxSlippageBps),
		AdminSecret:              os.Getenv("ADMIN_SECRET"),
		RateLimitRPS:             getEnvInt("RATE_LIMIT_RPS", DefaultRateLimit),
		CORSOrigins:              splitList(os.Getenv("CORS_ORIGINS")),
		OTLPEndpoint:             os.Getenv("OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.ILThresholdBps <= 0 || c.ILThresholdBps > 10000 {
		return fmt.Errorf("IL_THRESHOLD_BPS must be in (0, 10000], got %d", c.ILThresholdBps)
	}
	if c.HealthFactorThresholdBps <= 10000 {
		return fmt.Errorf("HEALTH_FACTOR_THRESHOLD_BPS must exceed 10000 (factor 1.0), got %d", c.HealthFactorThresholdBps)
	}
	if c.DefaultDailyTxLimit <= 0 {
		return fmt.Errorf("DEFAULT_DAILY_TX_LIMIT must be positive, got %d", c.DefaultDailyTxLimit)
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
