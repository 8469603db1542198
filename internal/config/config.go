// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Notification NotificationConfig
	Workflow     WorkflowConfig
}

type ServerConfig struct {
	HTTPPort    string
	Environment string
}

type DatabaseConfig struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string // sqlite only
}

type JWTConfig struct {
	Secret string
	Issuer string
}

// NotificationConfig bounds the backlog replayed to a principal on reconnect.
type NotificationConfig struct {
	BacklogWindow time.Duration
	BacklogLimit  int
}

// WorkflowConfig holds deployer policy choices for the task state machine.
type WorkflowConfig struct {
	// AllowReopenCompleted lets space/project owners move a task's status
	// away from completed again.
	AllowReopenCompleted bool
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "workhub"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
			Path:     getEnv("DB_PATH", "workhub.db"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Issuer: getEnv("JWT_ISSUER", "workhub"),
		},
		Notification: NotificationConfig{
			BacklogWindow: getEnvAsDuration("NOTIFICATION_BACKLOG_WINDOW", 24*time.Hour),
			BacklogLimit:  getEnvAsInt("NOTIFICATION_BACKLOG_LIMIT", 10),
		},
		Workflow: WorkflowConfig{
			AllowReopenCompleted: getEnvAsBool("WORKFLOW_ALLOW_REOPEN", true),
		},
	}, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) ValidateConfig() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Notification.BacklogLimit < 0 {
		return fmt.Errorf("NOTIFICATION_BACKLOG_LIMIT must not be negative")
	}
	if !c.IsDevelopment() && c.JWT.Secret == "dev-secret-change-in-production" {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	// Try parsing as duration string (e.g., "15m", "24h")
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}

	return defaultValue
}
