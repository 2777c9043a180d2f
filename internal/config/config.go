package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL string
	ServerPort  string
	BaseURL     string
	FrontendURL string

	// Natural-language parsing
	OpenAIKey     string
	ParserModel   string
	ParserBaseURL string

	// Auth
	OIDCIssuer   string
	OIDCAudience string
	JWKSURL      string

	// Infrastructure
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int

	// Push delivery
	PushEndpoint string
	PushAPIKey   string

	// Reminder scheduling
	PollInterval   time.Duration
	DedupRetention time.Duration
	PreAlertLead   time.Duration
	FollowUpDelay  time.Duration
	FollowUpWindow time.Duration
	DigestHour     int

	// Geofencing
	GeoStalenessMax   time.Duration
	GeoAcquireTimeout time.Duration

	EnableHSTS      bool
	WorkerDebugMode bool
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		OpenAIKey:     getEnv("OPENAI_API_KEY", ""),
		ParserModel:   getEnv("PARSER_MODEL", ""),
		ParserBaseURL: getEnv("PARSER_BASE_URL", ""),

		OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
		OIDCAudience: getEnv("OIDC_AUDIENCE", ""),
		JWKSURL:      getEnv("JWKS_URL", ""),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),

		PushEndpoint: getEnv("PUSH_ENDPOINT", ""),
		PushAPIKey:   getEnv("PUSH_API_KEY", ""),

		PollInterval:   getEnvDuration("POLL_INTERVAL", 15*time.Second),
		DedupRetention: getEnvDuration("DEDUP_RETENTION", time.Hour),
		PreAlertLead:   getEnvDuration("PREALERT_LEAD", 15*time.Minute),
		FollowUpDelay:  getEnvDuration("FOLLOWUP_DELAY", 60*time.Minute),
		FollowUpWindow: getEnvDuration("FOLLOWUP_WINDOW", 6*time.Minute),
		DigestHour:     getEnvInt("DIGEST_HOUR", 20),

		GeoStalenessMax:   getEnvDuration("GEO_STALENESS_MAX", 30*time.Second),
		GeoAcquireTimeout: getEnvDuration("GEO_ACQUIRE_TIMEOUT", 30*time.Second),

		EnableHSTS:      getEnvBool("ENABLE_HSTS", false),
		WorkerDebugMode: getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for notification delivery")
	}

	if cfg.DigestHour < 0 || cfg.DigestHour > 23 {
		return nil, fmt.Errorf("DIGEST_HOUR must be between 0 and 23, got %d", cfg.DigestHour)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
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
