package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string   `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseURL          string   `env:"DATABASE_URL,required,notEmpty"`
	CORSAllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	WorkerID       string        `env:"WORKER_ID" envDefault:"worker-1"`
	WorkerInterval time.Duration `env:"WORKER_INTERVAL" envDefault:"800ms"`
	NotifyChannel  string        `env:"NOTIFY_CHANNEL" envDefault:"questlog_changes"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.CORSAllowedOrigins = compact(cfg.CORSAllowedOrigins)

	if cfg.WorkerInterval <= 0 {
		return Config{}, errors.New("WORKER_INTERVAL must be positive")
	}
	return cfg, nil
}

func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
