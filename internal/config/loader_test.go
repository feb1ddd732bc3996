package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		unset := []string{
			"SCHEDULER_HTTP_PORT",
			"SCHEDULER_SQLITE_DSN",
			"SCHEDULER_PUBLIC_BASE_URL",
			"SCHEDULER_OUTBOX_QUEUE_SIZE",
			"SCHEDULER_SHUTDOWN_TIMEOUT",
			"SCHEDULER_SMTP_HOST",
			"SCHEDULER_SMTP_PORT",
		}
		for _, key := range unset {
			if err := os.Unsetenv(key); err != nil {
				t.Fatalf("failed to unset %s: %v", key, err)
			}
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLiteDSN != "file:scheduler.db?_foreign_keys=on" {
			t.Fatalf("unexpected default DSN: %q", cfg.SQLiteDSN)
		}
		if cfg.PublicBaseURL != "http://localhost:8080" {
			t.Fatalf("unexpected default base URL: %q", cfg.PublicBaseURL)
		}
		if cfg.OutboxQueueSize != 128 {
			t.Fatalf("expected default outbox queue size 128, got %d", cfg.OutboxQueueSize)
		}
		if cfg.ShutdownTimeout != 10*time.Second {
			t.Fatalf("expected default shutdown timeout 10s, got %v", cfg.ShutdownTimeout)
		}
		if cfg.MailEnabled() {
			t.Fatal("mail must be disabled without an SMTP host")
		}
	})

	t.Run("parses numeric fields and SMTP settings", func(t *testing.T) {
		t.Setenv("SCHEDULER_HTTP_PORT", "9090")
		t.Setenv("SCHEDULER_SQLITE_DSN", "file:/tmp/scheduler.db")
		t.Setenv("SCHEDULER_PUBLIC_BASE_URL", "https://scheduler.conf.example")
		t.Setenv("SCHEDULER_OUTBOX_QUEUE_SIZE", "512")
		t.Setenv("SCHEDULER_SMTP_HOST", "smtp.conf.example")
		t.Setenv("SCHEDULER_SMTP_PORT", "2525")
		t.Setenv("SCHEDULER_SMTP_FROM", "events@conf.example")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected HTTP port 9090, got %d", cfg.HTTPPort)
		}
		if cfg.OutboxQueueSize != 512 {
			t.Fatalf("expected outbox queue size 512, got %d", cfg.OutboxQueueSize)
		}
		if !cfg.MailEnabled() {
			t.Fatal("mail must be enabled when an SMTP host is set")
		}
		if cfg.SMTPPort != 2525 || cfg.SMTPFrom != "events@conf.example" {
			t.Fatalf("unexpected SMTP settings: %+v", cfg)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		t.Setenv("SCHEDULER_HTTP_PORT", "0")
		t.Setenv("SCHEDULER_PUBLIC_BASE_URL", "https://scheduler.conf.example")

		_, err := Load()
		if err == nil {
			t.Fatal("expected error for invalid port")
		}
		if !strings.Contains(err.Error(), "SCHEDULER_HTTP_PORT") {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})
}
