package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCapacity is the number of spaces a lot gets when none is configured
const DefaultCapacity = 20

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Parking ParkingConfig
	Redis   RedisConfig
	NATS    NATSConfig
	Sentry  SentryConfig
	Tracing TracingConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	LogLevel     string
	ReadTimeout  int
	WriteTimeout int
}

// ParkingConfig describes the lot served by this process
type ParkingConfig struct {
	Capacity int
	Timezone string
	Location *time.Location
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
}

// SentryConfig holds error tracking configuration
type SentryConfig struct {
	DSN     string
	Release string
}

// TracingConfig holds OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRate   float64
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			LogLevel:     getEnv("LOG_LEVEL", ""),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
		},
		Parking: ParkingConfig{
			Capacity: getEnvAsInt("PARKING_CAPACITY", DefaultCapacity),
			Timezone: getEnv("PARKING_TIMEZONE", "UTC"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			Enabled: getEnvAsBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://127.0.0.1:4222"),
			Stream:  getEnv("NATS_STREAM", "PARKING"),
		},
		Sentry: SentryConfig{
			DSN:     getEnv("SENTRY_DSN", ""),
			Release: getEnv("SENTRY_RELEASE", "1.0.0"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0),
		},
	}

	if cfg.Parking.Capacity <= 0 {
		return nil, fmt.Errorf("invalid PARKING_CAPACITY value %d: must be positive", cfg.Parking.Capacity)
	}

	loc, err := time.LoadLocation(cfg.Parking.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid PARKING_TIMEZONE value %q: %w", cfg.Parking.Timezone, err)
	}
	cfg.Parking.Location = loc

	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 10
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 10
	}

	return cfg, nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsProduction reports whether the service runs in production mode
func (c *ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
