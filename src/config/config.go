package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// API security: every /api/* request must carry this key.
	APIKey string

	// File source settings. Mode selects the transport: "local" reads from a
	// directory on disk, "s3" reads from an object store bucket.
	SourceMode          string
	SourceInboundPath   string
	SourceProcessedPath string
	SourceBucket        string
	SourceRegion        string
	SourceEndpoint      string
	SourceAccessKey     string
	SourceSecretKey     string

	// Alerting settings
	AlertServiceURL string
	AlertAPIKey     string
	AlertTimeout    time.Duration

	// Compliance settings
	AlarmThresholdPercent float64

	// Worker settings
	SyncSchedule string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /cmd)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	apiKey := getEnv("API_KEY", "dev-api-key-change-in-production")
	if apiKey == "dev-api-key-change-in-production" {
		log.Println("WARNING: Using default API_KEY. Set this in production.")
	}

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./clearinghouse.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Security
		APIKey: apiKey,

		// File source
		SourceMode:          strings.ToLower(getEnv("SOURCE_MODE", "local")),
		SourceInboundPath:   getEnv("SOURCE_INBOUND_PATH", "/uploads"),
		SourceProcessedPath: getEnv("SOURCE_PROCESSED_PATH", "/processed"),
		SourceBucket:        getEnv("SOURCE_BUCKET", ""),
		SourceRegion:        getEnv("SOURCE_REGION", "us-east-1"),
		SourceEndpoint:      getEnv("SOURCE_ENDPOINT", ""),
		SourceAccessKey:     getEnv("SOURCE_ACCESS_KEY", ""),
		SourceSecretKey:     getEnv("SOURCE_SECRET_KEY", ""),

		// Alerting
		AlertServiceURL: getEnv("ALERT_SERVICE_URL", "http://localhost:5001/alerts"),
		AlertAPIKey:     getEnv("ALERT_API_KEY", "alert-api-key"),
		AlertTimeout:    getEnvAsDuration("ALERT_TIMEOUT", 5*time.Second),

		// Compliance
		AlarmThresholdPercent: getEnvAsFloat("ALARM_THRESHOLD_PERCENT", 20.0),

		// Worker
		SyncSchedule: getEnv("SYNC_SCHEDULE", "@every 5m"),
	}

	if Cfg.SourceMode == "s3" && Cfg.SourceBucket == "" {
		log.Fatalf("FATAL: SOURCE_MODE=s3 requires SOURCE_BUCKET to be set.")
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, SourceMode=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.SourceMode)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float or returns a fallback.
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %v", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
