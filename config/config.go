// Package config loads server configuration from the environment.
// A local .env file is honored in development; real environments set
// variables directly.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"cari-ledger"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		// Path to the SQLite database file. ":memory:" for ephemeral runs.
		Path string `envconfig:"DB_PATH" default:"cari.db"`
	}

	Log struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
	}

	CORS struct {
		AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`
	}

	Audit struct {
		// Periodic sweep comparing cached balances to the entry log.
		Enabled  bool          `envconfig:"AUDIT_ENABLED" default:"true"`
		Interval time.Duration `envconfig:"AUDIT_INTERVAL" default:"1h"`
	}
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	return &cfg, nil
}
