package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBUrl           string
	JWTSecret       string
	AppEnv          string
	LogLevel        string
	LogFile         string
	RedisURL        string
	SnapshotBackend string
	SnapshotTTL     time.Duration
	StepTableFile   string
	StripeAPIKey    string
	StripeBaseURL   string
	EnableMetrics   bool
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	snapshotTTL, err := time.ParseDuration(getEnv("SNAPSHOT_TTL", "720h"))
	if err != nil {
		return nil, fmt.Errorf("SNAPSHOT_TTL must be a duration: %w", err)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBUrl:           getEnv("DB_URL", ""),
		JWTSecret:       jwtSecret,
		AppEnv:          normalizeEnv(getEnv("APP_ENV", "production")),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFile:         getEnv("LOG_FILE", "logs/app.log"),
		RedisURL:        getEnv("REDIS_URL", ""),
		SnapshotBackend: normalizeBackend(getEnv("SNAPSHOT_BACKEND", "")),
		SnapshotTTL:     snapshotTTL,
		StepTableFile:   getEnv("STEP_TABLE_FILE", ""),
		StripeAPIKey:    getEnv("STRIPE_API_KEY", ""),
		StripeBaseURL:   getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
		EnableMetrics:   getEnvBool("ENABLE_METRICS", true),
	}
	if cfg.SnapshotBackend == "" {
		cfg.SnapshotBackend = cfg.defaultSnapshotBackend()
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}

func normalizeBackend(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "redis":
		return "redis"
	case "postgres", "postgresql", "pg":
		return "postgres"
	case "memory", "mem", "inmemory":
		return "memory"
	default:
		return ""
	}
}

func (c *Config) defaultSnapshotBackend() string {
	switch {
	case c.RedisURL != "":
		return "redis"
	case c.DBUrl != "":
		return "postgres"
	default:
		return "memory"
	}
}

func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}
