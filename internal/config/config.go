// Package config loads server settings from the environment. A .env file,
// when present, seeds the process environment first.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string        `env:"ADDR" envDefault:":8080"`
	DatabaseURL string        `env:"DATABASE_URL,required"`
	Throttle    time.Duration `env:"BROADCAST_THROTTLE" envDefault:"200ms"`
	Heartbeat   time.Duration `env:"BROADCAST_HEARTBEAT" envDefault:"30s"`
	Dev         bool          `env:"DEV" envDefault:"false"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
