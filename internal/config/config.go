package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "default-secret-key-change-me"

type Config struct {
	Port            string
	GinMode         string
	DBDriver        string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPath          string
	DBLogLevel      string
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int
	JWTSecret       string
	JWTIssuer       string
	TokenTTL        time.Duration
	ClientURL       string
	EditPolicy      string
	StatusPolicy    string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		DBDriver:        getEnv("DB_DRIVER", "mysql"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "3306"),
		DBUser:          getEnv("DB_USER", "taskuser"),
		DBPassword:      getEnv("DB_PASSWORD", "taskpassword"),
		DBName:          getEnv("DB_NAME", "task_tracker"),
		DBPath:          getEnv("DB_PATH", "task_tracker.db"),
		DBLogLevel:      getEnv("DB_LOG_LEVEL", "warn"),
		RedisHost:       getEnv("REDIS_HOST", ""),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		JWTSecret:       getEnv("JWT_SECRET", defaultJWTSecret),
		JWTIssuer:       getEnv("JWT_ISSUER", "task-tracker-api"),
		TokenTTL:        getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		ClientURL:       getEnv("CLIENT_URL", "http://localhost:5173"),
		EditPolicy:      getEnv("TASK_EDIT_POLICY", "any-user"),
		StatusPolicy:    getEnv("TASK_STATUS_POLICY", "assignee-only"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// Validate reports configuration that would make the server misbehave.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	switch c.EditPolicy {
	case "any-user", "creator-only":
	default:
		return fmt.Errorf("unsupported TASK_EDIT_POLICY %q", c.EditPolicy)
	}
	switch c.StatusPolicy {
	case "assignee-only", "assignee-or-creator":
	default:
		return fmt.Errorf("unsupported TASK_STATUS_POLICY %q", c.StatusPolicy)
	}
	if !strings.HasPrefix(c.ClientURL, "http://") && !strings.HasPrefix(c.ClientURL, "https://") {
		return fmt.Errorf("CLIENT_URL must be an http(s) origin, got %q", c.ClientURL)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return errors.New("JWT_SECRET must be set in release mode")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// RedisEnabled is true when a Redis host has been configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}
