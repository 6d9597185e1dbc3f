// Package config loads process configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr string `envconfig:"ADDR" default:":8080"`

	DBDriver     string `envconfig:"DB_DRIVER" default:"sqlite3"`
	DBDSN        string `envconfig:"DB_DSN" default:"banter.db"`
	DBMaxConns   int    `envconfig:"DB_MAX_CONNS" default:"10"`
	CookieSecret string `envconfig:"COOKIE_SECRET" default:"dev-secret-change-me"`

	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
	MaxMessageSize int64    `envconfig:"WS_MAX_MESSAGE_SIZE" default:"4096"`
	SendBufferSize int      `envconfig:"WS_SEND_BUFFER" default:"256"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env if present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("banter", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
