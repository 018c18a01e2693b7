package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"

	"gostamp/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Engine   EngineConfig
	Metrics  MetricsConfig
	LogLevel string
}

// DatabaseConfig holds database connection settings. An empty URL disables persistence.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// EngineConfig holds comparison defaults
type EngineConfig struct {
	Workers              int
	DefaultAlpha         float64
	DefaultCoverage      float64
	BarnardSteps         int
	ResamplingReplicates int
	RNGSeed              int64
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
}

// Load reads an optional .env file, then environment variables, and validates the result
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds configuration from the process environment only
func FromEnv() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:          getEnvOrDefault("DATABASE_URL", ""),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Engine: EngineConfig{
			Workers:              getEnvIntOrDefault("WORKERS", runtime.NumCPU()),
			DefaultAlpha:         getEnvFloatOrDefault("DEFAULT_ALPHA", 0.05),
			DefaultCoverage:      getEnvFloatOrDefault("DEFAULT_COVERAGE", 0.95),
			BarnardSteps:         getEnvIntOrDefault("BARNARD_STEPS", 100),
			ResamplingReplicates: getEnvIntOrDefault("RESAMPLING_REPLICATES", 1000),
			RNGSeed:              int64(getEnvIntOrDefault("RNG_SEED", 0)),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBoolOrDefault("METRICS_ENABLED", true),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("GIN_MODE must be debug, release or test, got %q", config.Server.GinMode))
	}
	if config.Engine.Workers < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("WORKERS must be positive, got %d", config.Engine.Workers))
	}
	if config.Engine.DefaultAlpha <= 0 || config.Engine.DefaultAlpha >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("DEFAULT_ALPHA must be in (0, 1), got %g", config.Engine.DefaultAlpha))
	}
	if config.Engine.DefaultCoverage <= 0 || config.Engine.DefaultCoverage >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("DEFAULT_COVERAGE must be in (0, 1), got %g", config.Engine.DefaultCoverage))
	}
	if config.Engine.BarnardSteps < 1 || config.Engine.BarnardSteps > 10000 {
		return errors.ConfigInvalid(fmt.Sprintf("BARNARD_STEPS must be in [1, 10000], got %d", config.Engine.BarnardSteps))
	}
	if config.Engine.ResamplingReplicates < 1 || config.Engine.ResamplingReplicates > 1000000 {
		return errors.ConfigInvalid(fmt.Sprintf("RESAMPLING_REPLICATES must be in [1, 1000000], got %d", config.Engine.ResamplingReplicates))
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

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
