package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Backend  BackendConfig
	Auth     AuthConfig
	Queue    QueueConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BackendConfig holds the hospital REST backend configuration
type BackendConfig struct {
	BaseURL        string
	TimeoutSeconds int
	APIToken       string
	UserInfo       string
}

// AuthConfig holds caller authentication settings. Screen management and
// session endpoints accept HS256 access tokens signed with JWTSecret.
type AuthConfig struct {
	JWTSecret string
}

// QueueConfig holds waiting-queue display configuration
type QueueConfig struct {
	Timezone            string
	ConsultationMinutes int
	PollInterval        time.Duration
	ClockTick           time.Duration
	SnapshotTTLSeconds  int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
			Env:  getEnv("ENV", "production"),

			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "reception_queue"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_API_URL", "http://localhost:5000/api"),
			TimeoutSeconds: getEnvAsInt("BACKEND_API_TIMEOUT_SECONDS", 10),
			APIToken:       getEnv("BACKEND_API_TOKEN", ""),
			UserInfo:       getEnv("BACKEND_USER_INFO", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_ACCESS_SECRET", ""),
		},
		Queue: QueueConfig{
			Timezone:            getEnv("QUEUE_TIMEZONE", "Asia/Kolkata"),
			ConsultationMinutes: getEnvAsInt("QUEUE_CONSULTATION_MINUTES", 10),
			PollInterval:        getEnvAsDuration("QUEUE_POLL_INTERVAL", 30*time.Second),
			ClockTick:           getEnvAsDuration("QUEUE_CLOCK_TICK", time.Second),
			SnapshotTTLSeconds:  getEnvAsInt("QUEUE_SNAPSHOT_TTL_SECONDS", 60),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "reception-queue"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Queue.ConsultationMinutes <= 0 {
		return nil, fmt.Errorf("QUEUE_CONSULTATION_MINUTES must be positive, got %d", cfg.Queue.ConsultationMinutes)
	}
	if cfg.Queue.PollInterval <= 0 {
		return nil, fmt.Errorf("QUEUE_POLL_INTERVAL must be positive, got %s", cfg.Queue.PollInterval)
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Timeout returns the backend request timeout
func (c *BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Location resolves the configured queue timezone. Hosts without a zoneinfo
// database fall back to a fixed +05:30 zone.
func (c *QueueConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// ConsultationDuration returns the default per-patient consultation slot
func (c *QueueConfig) ConsultationDuration() time.Duration {
	return time.Duration(c.ConsultationMinutes) * time.Minute
}

// IsDevelopment reports whether the service runs in development mode
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "development"
}

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

// getEnvAsList splits a comma-separated value, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// getEnvAsDuration accepts Go durations ("30s") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
