package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the whole application configuration, populated from env vars.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RabbitMQ  RabbitMQConfig
	Pricing   PricingConfig
	RateLimit RateLimitConfig
	Jobs      JobConfig
}

type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Port        string
	Version     string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry int // minutes
}

// RabbitMQConfig - empty URL disables event publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

type PricingConfig struct {
	// RefundFeePercent is withheld from every visitor initiated refund.
	RefundFeePercent float64
	// TicketValidityDays is the length of a ticket's validity window from
	// the visit date.
	TicketValidityDays int
	CatalogCacheTTL    time.Duration
	BatchRefundWorkers int
	// PendingTTL is how long a reservation may stay unpaid before the
	// worker cancels it.
	PendingTTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

type JobConfig struct {
	CompleteReservationsCron string
	ExpirePendingCron        string
}

// Load reads config from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Themepark API"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "themepark"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenExpiry: getEnvInt("JWT_ACCESS_EXPIRY", 60),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "themepark.events"),
		},
		Pricing: PricingConfig{
			RefundFeePercent:   getEnvFloat("REFUND_FEE_PERCENT", 0),
			TicketValidityDays: getEnvInt("TICKET_VALIDITY_DAYS", 1),
			CatalogCacheTTL:    getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
			BatchRefundWorkers: getEnvInt("BATCH_REFUND_WORKERS", 4),
			PendingTTL:         getEnvDuration("RESERVATION_PENDING_TTL", 2*time.Hour),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 20),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Jobs: JobConfig{
			CompleteReservationsCron: getEnv("JOB_COMPLETE_RESERVATIONS_CRON", "0 * * * *"),
			ExpirePendingCron:        getEnv("JOB_EXPIRE_PENDING_CRON", "*/15 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the config for values the services cannot run with.
func (c *Config) Validate() error {
	if c.Pricing.RefundFeePercent < 0 || c.Pricing.RefundFeePercent > 100 {
		return fmt.Errorf("REFUND_FEE_PERCENT must be within 0..100, got %v", c.Pricing.RefundFeePercent)
	}
	if c.Pricing.TicketValidityDays < 1 {
		return fmt.Errorf("TICKET_VALIDITY_DAYS must be at least 1")
	}
	if c.Pricing.BatchRefundWorkers < 1 {
		return fmt.Errorf("BATCH_REFUND_WORKERS must be at least 1")
	}

	if c.App.Environment == "production" {
		if c.JWT.Secret == "your-secret-key-change-in-production" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
