package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradegate/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Terminal Session
	Login        int64
	Password     string
	Server       string
	TerminalPath string
	Timeout      time.Duration

	// Instrument Catalog
	CatalogPath string // Empty means the built-in demo catalog

	// Trading Parameters
	Symbol     string
	Volume     float64 // Order volume in lots
	SLDistance float64 // Stop loss distance in price units (0 disables)
	TPDistance float64 // Take profit distance in price units (0 disables)
	Deviation  int     // Max slippage in points for market orders
	Magic      int64   // Strategy identifier stamped on every order

	// Audit Store
	DBPath      string
	PostgresDSN string // When set, Postgres replaces SQLite

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
	LogJSON  bool            // JSON log lines instead of console output
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Terminal Session
	cfg.Login, err = getEnvAsInt64Required("TERMINAL_LOGIN", 0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TERMINAL_LOGIN: %v", err))
	} else if cfg.Login < 0 {
		errs = append(errs, "TERMINAL_LOGIN cannot be negative")
	}
	cfg.Password = getEnv("TERMINAL_PASSWORD", "")
	cfg.Server = getEnv("TERMINAL_SERVER", "")
	cfg.TerminalPath = getEnv("TERMINAL_PATH", "")

	timeoutMs, err := getEnvAsIntRequired("TERMINAL_TIMEOUT_MS", 10000)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TERMINAL_TIMEOUT_MS: %v", err))
	} else if timeoutMs <= 0 {
		errs = append(errs, "TERMINAL_TIMEOUT_MS must be positive")
	}
	cfg.Timeout = time.Duration(timeoutMs) * time.Millisecond

	// Instrument Catalog
	cfg.CatalogPath = getEnv("CATALOG_PATH", "")

	// Trading Parameters
	cfg.Symbol = getEnv("TRADE_SYMBOL", "XAUUSD")
	if cfg.Symbol == "" {
		errs = append(errs, "TRADE_SYMBOL must be set")
	}

	cfg.Volume, err = getEnvAsFloatRequired("TRADE_VOLUME", 0.01)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRADE_VOLUME: %v", err))
	} else if cfg.Volume <= 0 {
		errs = append(errs, "TRADE_VOLUME must be positive")
	}

	cfg.SLDistance, err = getEnvAsFloatRequired("SL_DISTANCE", 2.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SL_DISTANCE: %v", err))
	} else if cfg.SLDistance < 0 {
		errs = append(errs, "SL_DISTANCE cannot be negative")
	}

	cfg.TPDistance, err = getEnvAsFloatRequired("TP_DISTANCE", 2.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TP_DISTANCE: %v", err))
	} else if cfg.TPDistance < 0 {
		errs = append(errs, "TP_DISTANCE cannot be negative")
	}

	cfg.Deviation, err = getEnvAsIntRequired("DEVIATION_POINTS", 120)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEVIATION_POINTS: %v", err))
	} else if cfg.Deviation < 0 {
		errs = append(errs, "DEVIATION_POINTS cannot be negative")
	}

	cfg.Magic, err = getEnvAsInt64Required("MAGIC_NUMBER", 620301)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAGIC_NUMBER: %v", err))
	} else if cfg.Magic < 0 {
		errs = append(errs, "MAGIC_NUMBER cannot be negative")
	}

	// Audit Store
	cfg.PostgresDSN = getEnv("DATABASE_URL", "")
	cfg.DBPath = getEnv("DB_PATH", "./data/tradegate.db")
	if cfg.PostgresDSN == "" && cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set when DATABASE_URL is empty")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogJSON = strings.EqualFold(getEnv("LOG_FORMAT", "text"), "json")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsInt64Required(key string, defaultValue int64) (int64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
