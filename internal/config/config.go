// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the price cache database (always absolute)
	Port             int
	LogLevel         string
	DevMode          bool
	PriceCacheTTL    int    // Price snapshot reuse window in hours
	RefreshSchedule  string // Cron spec for the background price refresh job
	TrackedSymbols   string // Comma-separated symbol list pre-warmed by the refresh job
	YahooBaseURL     string // Overridable for tests
	MaxStressTrials  int    // Upper bound on Monte Carlo trial count per request
	StressNumWorkers int    // Worker goroutines for Monte Carlo batches (0 = NumCPU)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("GROWTHSIM_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("GROWTHSIM_PORT", 8080),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		PriceCacheTTL:    getEnvAsInt("PRICE_CACHE_TTL_HOURS", 24),
		RefreshSchedule:  getEnv("PRICE_REFRESH_SCHEDULE", "0 30 5 * * *"),
		TrackedSymbols:   getEnv("TRACKED_SYMBOLS", ""),
		YahooBaseURL:     getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		MaxStressTrials:  getEnvAsInt("MAX_STRESS_TRIALS", 10000),
		StressNumWorkers: getEnvAsInt("STRESS_NUM_WORKERS", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.PriceCacheTTL < 0 {
		return fmt.Errorf("price cache TTL must be non-negative, got %d", c.PriceCacheTTL)
	}
	if c.MaxStressTrials <= 0 {
		return fmt.Errorf("max stress trials must be positive, got %d", c.MaxStressTrials)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
