package config

import (
	"os"
	"strconv"

	"launchlab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Engine   EngineConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
	// MaxConcurrentAnalyses bounds the CPU-bound Monte-Carlo work the
	// API will run at once.
	MaxConcurrentAnalyses int
}

// EngineConfig holds decision engine tuning
type EngineConfig struct {
	Simulations int
	BaseSeed    int64
	PriorAlpha  float64
	PriorBeta   float64
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:                  getEnvOrDefault("PORT", "8080"),
			MaxConcurrentAnalyses: getEnvIntOrDefault("MAX_CONCURRENT_ANALYSES", 4),
		},
		Engine: EngineConfig{
			Simulations: getEnvIntOrDefault("ENGINE_SIMULATIONS", 10000),
			BaseSeed:    getEnvInt64OrDefault("ENGINE_BASE_SEED", 1),
			PriorAlpha:  getEnvFloatOrDefault("ENGINE_PRIOR_ALPHA", 1.0),
			PriorBeta:   getEnvFloatOrDefault("ENGINE_PRIOR_BETA", 1.0),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if config.Engine.Simulations <= 0 {
		return errors.ConfigInvalid("ENGINE_SIMULATIONS must be positive")
	}
	if config.Engine.PriorAlpha <= 0 || config.Engine.PriorBeta <= 0 {
		return errors.ConfigInvalid("ENGINE_PRIOR_ALPHA and ENGINE_PRIOR_BETA must be positive")
	}
	if config.Server.MaxConcurrentAnalyses <= 0 {
		return errors.ConfigInvalid("MAX_CONCURRENT_ANALYSES must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
