package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ulule/limiter/v3"
)

// Supported backend names
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Environment           string
	ServerPort            string
	FrontendURL           string
	EnableHSTS            bool
	ServerDebugMode       bool
	WorkerDebugMode       bool
	AIProvider            string
	OpenAIKey             string
	GeminiKey             string
	AIModel               string
	AIBaseURL             string
	CompletionTimeout     time.Duration
	RateLimit             string
	RateLimitBackend      string
	MemoryBackend         string
	MemoryTTL             time.Duration
	RedisURL              string
	DatabaseURL           string
	RabbitMQURL           string
	RabbitMQPrefetch      int
	DefaultTimezone       string
	BackgroundConcurrency int
	OTELEnabled           bool
	OTELEndpoint          string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment:           getEnv("ENVIRONMENT", "development"),
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:            getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode:       getEnvBool("SERVER_DEBUG_MODE", false),
		WorkerDebugMode:       getEnvBool("WORKER_DEBUG_MODE", false),
		AIProvider:            getEnv("AI_PROVIDER", "openai"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		AIModel:               getEnv("AI_MODEL", ""),
		AIBaseURL:             getEnv("AI_BASE_URL", ""),
		CompletionTimeout:     getEnvDuration("COMPLETION_TIMEOUT", 20*time.Second),
		RateLimit:             getEnv("RATE_LIMIT", "30-M"),
		RateLimitBackend:      strings.ToLower(getEnv("RATE_LIMIT_BACKEND", BackendMemory)),
		MemoryBackend:         strings.ToLower(getEnv("MEMORY_BACKEND", BackendMemory)),
		MemoryTTL:             getEnvDuration("MEMORY_TTL", 0),
		RedisURL:              getEnv("REDIS_URL", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RabbitMQURL:           getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:      getEnvInt("RABBITMQ_PREFETCH", 1),
		DefaultTimezone:       getEnv("DEFAULT_TIMEZONE", "UTC"),
		BackgroundConcurrency: getEnvInt("BACKGROUND_CONCURRENCY", 64),
		OTELEnabled:           getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv reads KEY=value pairs from path into the environment. A missing
// file is not an error and variables that are already set keep their value.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate reports configuration combinations that cannot work
func (c *Config) Validate() error {
	if _, err := c.Rate(); err != nil {
		return fmt.Errorf("invalid RATE_LIMIT %q: %w", c.RateLimit, err)
	}

	switch c.RateLimitBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_BACKEND %q (must be 'memory' or 'redis')", c.RateLimitBackend)
	}

	switch c.MemoryBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when MEMORY_BACKEND=redis")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when MEMORY_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unsupported MEMORY_BACKEND %q (must be 'memory', 'redis', or 'postgres')", c.MemoryBackend)
	}

	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", c.DefaultTimezone, err)
	}

	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("COMPLETION_TIMEOUT must be positive")
	}

	return nil
}

// Rate parses RateLimit in the limiter format, e.g. "30-M"
func (c *Config) Rate() (limiter.Rate, error) {
	return limiter.NewRateFromFormatted(c.RateLimit)
}

// Location returns the default time zone used when a request carries none
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
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
