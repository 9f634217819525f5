package main

import (
	"os"
	"strconv"

	"themepark-backend/internal/config"
	"themepark-backend/pkg/logger"
)

// Config holds the worker-only settings. Everything shared with the API
// comes from config.Config.
type Config struct {
	App         *config.Config
	Concurrency int
	HealthAddr  string
}

// loadConfig loads configuration from environment variables
func loadConfig(app *config.Config) *Config {
	cfg := &Config{
		App:         app,
		Concurrency: 10,
		HealthAddr:  ":9999",
	}
	if v, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY")); err == nil && v > 0 {
		cfg.Concurrency = v
	}
	if v := os.Getenv("WORKER_HEALTH_ADDR"); v != "" {
		cfg.HealthAddr = v
	}

	logger.Info("[Config] Worker", map[string]interface{}{
		"redis":       app.Redis.Host,
		"concurrency": cfg.Concurrency,
		"health_addr": cfg.HealthAddr,
	})
	return cfg
}
