package db

import (
	"errors"
	"os"
)

// Config holds the database settings used by the admin tool.
type Config struct {
	Driver string
	DSN    string // Data Source Name (Connection-String)
}

// Load reads the database configuration from the environment. DB_DRIVER
// defaults to postgres.
func Load() (*Config, error) {
	cfg := &Config{
		Driver: os.Getenv("DB_DRIVER"),
		DSN:    os.Getenv("DB_DSN"),
	}
	if cfg.Driver == "" {
		cfg.Driver = "postgres"
	}
	if cfg.DSN == "" {
		return nil, errors.New("environment variable DB_DSN is not set")
	}
	return cfg, nil
}
