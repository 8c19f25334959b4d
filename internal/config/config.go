// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          int
	LogLevel      string
	DevMode       bool
	ModelFile     string        // Optional YAML file overriding the model coefficients
	SolverTimeout time.Duration // Upper bound on a single QP solve
	CORSOrigins   []string
	Dataset       *DatasetConfig
	Model         *Model
}

// DatasetConfig holds the optional S3 source for governance datasets
type DatasetConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // Custom endpoint for S3-compatible stores (empty = AWS)
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a dataset bucket is configured
func (d *DatasetConfig) Enabled() bool {
	return d != nil && d.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnvAsInt("GOVSIM_PORT", 8080),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DevMode:       getEnvAsBool("DEV_MODE", false),
		ModelFile:     getEnv("GOVSIM_MODEL_FILE", ""),
		SolverTimeout: getEnvAsDuration("GOVSIM_SOLVER_TIMEOUT", 5*time.Second),
		CORSOrigins:   getEnvAsList("GOVSIM_CORS_ORIGINS", []string{"*"}),
		Dataset: &DatasetConfig{
			Bucket:          getEnv("GOVSIM_DATASET_BUCKET", ""),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("GOVSIM_DATASET_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
	}

	model := DefaultModel()
	if cfg.ModelFile != "" {
		loaded, err := LoadModel(cfg.ModelFile)
		if err != nil {
			return nil, err
		}
		model = loaded
	}
	cfg.Model = model

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SolverTimeout <= 0 {
		return fmt.Errorf("solver timeout must be positive, got %s", c.SolverTimeout)
	}
	if c.Dataset.Enabled() && (c.Dataset.AccessKeyID == "") != (c.Dataset.SecretAccessKey == "") {
		return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}
	if c.Model == nil {
		return fmt.Errorf("model coefficients not loaded")
	}
	return c.Model.Validate()
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
