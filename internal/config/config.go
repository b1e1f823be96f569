package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// LLM backend, used only when healing is enabled.
	APIKey string
	Model  string
	Url    string

	// Replay pacing and limits.
	SettleDelay     time.Duration
	MaxHealingSteps int
	NavRetries      int
	Headless        bool
}

// LoadConfig loads configuration from .env file and environment
// variables. requireAPIKey is set when the run may need the healing
// oracle; a plain replay works without credentials.
func LoadConfig(requireAPIKey bool) (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// If .env file doesn't exist, that's fine, we'll use environment variables
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	config := &Config{
		APIKey:          getEnvOrDefault("API_KEY", ""),
		Model:           getEnvOrDefault("MODEL", "gpt-4o-mini"),
		Url:             getEnvOrDefault("URL", ""),
		SettleDelay:     getEnvDuration("SETTLE_DELAY", time.Second),
		MaxHealingSteps: getEnvInt("MAX_HEALING_STEPS", 50),
		NavRetries:      getEnvInt("NAV_RETRIES", 3),
		Headless:        getEnvBool("HEADLESS", true),
	}

	if requireAPIKey && config.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required for healing but not set in environment or .env file")
	}

	return config, nil
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
