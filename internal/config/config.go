package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// Availability search tuning.
	DefaultGranularity time.Duration
	MaxSearchResults   int
	LocationTimeout    time.Duration

	// Waitlist sweep worker.
	WaitlistHorizon       time.Duration
	WaitlistMaxMatches    int
	WaitlistSweepInterval time.Duration
	WaitlistOfferTTL      time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DefaultGranularity: getEnvAsDuration("AVAILABILITY_GRANULARITY", 30*time.Minute),
		MaxSearchResults:   getEnvAsInt("AVAILABILITY_MAX_RESULTS", 50),
		LocationTimeout:    getEnvAsDuration("AVAILABILITY_LOCATION_TIMEOUT", 5*time.Second),

		WaitlistHorizon:       getEnvAsDuration("WAITLIST_HORIZON", 14*24*time.Hour),
		WaitlistMaxMatches:    getEnvAsInt("WAITLIST_MAX_MATCHES", 3),
		WaitlistSweepInterval: getEnvAsDuration("WAITLIST_SWEEP_INTERVAL", 15*time.Minute),
		WaitlistOfferTTL:      getEnvAsDuration("WAITLIST_OFFER_TTL", 14*24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
