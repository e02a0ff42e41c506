package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	App       AppConfig
	Scheduler SchedulerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret            string
	InitialCreditBalance string
}

// SchedulerConfig holds the fixed-delay intervals of the deadline sweeps
type SchedulerConfig struct {
	CloseExpiredInterval             time.Duration
	ProcessResolvableInterval        time.Duration
	NotifyResolutionDeadlineInterval time.Duration
	NotifyBettingDeadlineInterval    time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "groupbet"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret:            getEnv("JWT_SECRET", ""),
			InitialCreditBalance: getEnv("INITIAL_CREDIT_BALANCE", "1000.00"),
		},
		Scheduler: SchedulerConfig{
			CloseExpiredInterval:             getEnvMillis("CLOSE_EXPIRED_INTERVAL_MS", 120000),
			ProcessResolvableInterval:        getEnvMillis("PROCESS_RESOLVABLE_INTERVAL_MS", 300000),
			NotifyResolutionDeadlineInterval: getEnvMillis("NOTIFY_RESOLUTION_DEADLINE_INTERVAL_MS", 900000),
			NotifyBettingDeadlineInterval:    getEnvMillis("NOTIFY_BETTING_DEADLINE_INTERVAL_MS", 900000),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvMillis reads a millisecond interval with a fallback default
func getEnvMillis(key string, defaultMs int64) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(defaultMs) * time.Millisecond
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms <= 0 {
		return time.Duration(defaultMs) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
