package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rankforge/rankforge/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Policy        PolicyConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds postgres configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds the usage counter store configuration
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// PolicyConfig holds decision engine tuning
type PolicyConfig struct {
	// DecisionCacheTTL bounds how stale a cached permission decision may be.
	// Zero disables the cache.
	DecisionCacheTTL time.Duration

	// SnapshotSchedule is the cron expression for mirroring usage counters
	// to postgres
	SnapshotSchedule string

	// FallbackPlanID is the plan applied when a team has no active billing.
	// Must exist in the plan catalog.
	FallbackPlanID string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("RANKFORGE_HOST", "0.0.0.0"),
			Port:            getEnv("RANKFORGE_PORT", "8080"),
			ReadTimeout:     getEnvDuration("RANKFORGE_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("RANKFORGE_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("RANKFORGE_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("RANKFORGE_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("RANKFORGE_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("RANKFORGE_POSTGRES_URL", "postgres://localhost:5432/rankforge?sslmode=disable"),
			MaxOpenConns: getEnvInt("RANKFORGE_POSTGRES_MAX_CONNS", 25),
			MaxIdleConns: getEnvInt("RANKFORGE_POSTGRES_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("RANKFORGE_POSTGRES_CONN_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("RANKFORGE_REDIS_URL", "redis://localhost:6379/0"),
			Password: getEnv("RANKFORGE_REDIS_PASSWORD", ""),
			DB:       getEnvInt("RANKFORGE_REDIS_DB", -1),
		},
		Policy: PolicyConfig{
			DecisionCacheTTL: getEnvDuration("RANKFORGE_DECISION_CACHE_TTL", 30*time.Second),
			SnapshotSchedule: getEnv("RANKFORGE_SNAPSHOT_SCHEDULE", "@every 5m"),
			FallbackPlanID:   getEnv("RANKFORGE_FALLBACK_PLAN", "free"),
		},
		Observability: ObservabilityConfig{
			LogLevel:           observability.ParseLogLevel(getEnv("RANKFORGE_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("RANKFORGE_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("RANKFORGE_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("RANKFORGE_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("RANKFORGE_OTEL_SERVICE_NAME", "rankforge-policy"),
			OTelServiceVersion: getEnv("RANKFORGE_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("RANKFORGE_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}
	if c.Policy.DecisionCacheTTL < 0 {
		return fmt.Errorf("decision cache TTL must not be negative")
	}
	if c.Policy.SnapshotSchedule == "" {
		return fmt.Errorf("snapshot schedule is required")
	}
	if c.Policy.FallbackPlanID == "" {
		return fmt.Errorf("fallback plan id is required")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
