// Package config loads service settings from the process environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config captures environment driven configuration for the scheduler service.
type Config struct {
	HTTPPort      int    `env:"SCHEDULER_HTTP_PORT" envDefault:"8080"`
	SQLiteDSN     string `env:"SCHEDULER_SQLITE_DSN" envDefault:"file:scheduler.db?_foreign_keys=on"`
	PublicBaseURL string `env:"SCHEDULER_PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
	LogLevel      string `env:"SCHEDULER_LOG_LEVEL" envDefault:"info"`

	OutboxQueueSize int           `env:"SCHEDULER_OUTBOX_QUEUE_SIZE" envDefault:"128"`
	ShutdownTimeout time.Duration `env:"SCHEDULER_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	SMTPHost     string `env:"SCHEDULER_SMTP_HOST"`
	SMTPPort     int    `env:"SCHEDULER_SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SCHEDULER_SMTP_USERNAME"`
	SMTPPassword string `env:"SCHEDULER_SMTP_PASSWORD"`
	SMTPFrom     string `env:"SCHEDULER_SMTP_FROM" envDefault:"scheduler@conference.local"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var invalid []string
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "SCHEDULER_HTTP_PORT")
	}
	if strings.TrimSpace(c.SQLiteDSN) == "" {
		invalid = append(invalid, "SCHEDULER_SQLITE_DSN")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		invalid = append(invalid, "SCHEDULER_PUBLIC_BASE_URL")
	}
	if c.OutboxQueueSize <= 0 {
		invalid = append(invalid, "SCHEDULER_OUTBOX_QUEUE_SIZE")
	}
	if c.ShutdownTimeout <= 0 {
		invalid = append(invalid, "SCHEDULER_SHUTDOWN_TIMEOUT")
	}
	if c.SMTPHost != "" && (c.SMTPPort <= 0 || c.SMTPPort > 65535) {
		invalid = append(invalid, "SCHEDULER_SMTP_PORT")
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// MailEnabled reports whether an SMTP relay is configured.
func (c Config) MailEnabled() bool {
	return strings.TrimSpace(c.SMTPHost) != ""
}
