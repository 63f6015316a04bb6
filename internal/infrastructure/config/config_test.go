package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/iho/emiledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.StorageBackend != config.StoragePostgres {
		t.Fatalf("expected postgres backend by default, got %s", cfg.StorageBackend)
	}

	if cfg.PaymentLockTimeout != 5*time.Second {
		t.Fatalf("expected 5s lock timeout, got %s", cfg.PaymentLockTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("OUTBOX_PUBLISHER", "redis")
	t.Setenv("PAYMENT_LOCK_TIMEOUT", "250ms")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.StorageBackend != config.StorageMemory || cfg.OutboxPublisher != config.PublisherRedis {
		t.Fatalf("expected backend overrides, got %s/%s", cfg.StorageBackend, cfg.OutboxPublisher)
	}

	if cfg.PaymentLockTimeout != 250*time.Millisecond {
		t.Fatalf("expected lock timeout override, got %s", cfg.PaymentLockTimeout)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	original := os.Getenv("HTTP_READ_TIMEOUT")
	t.Setenv("HTTP_READ_TIMEOUT", "not-a-duration")
	t.Cleanup(func() {
		t.Setenv("HTTP_READ_TIMEOUT", original)
	})

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "sqlite"}},
		{"unknown publisher", map[string]string{"OUTBOX_PUBLISHER": "kafka"}},
		{"redis publisher without redis", map[string]string{"OUTBOX_PUBLISHER": "redis", "REDIS_ENABLED": "false"}},
		{"zero lock timeout", map[string]string{"PAYMENT_LOCK_TIMEOUT": "0s"}},
		{"sub-millisecond lock timeout", map[string]string{"PAYMENT_LOCK_TIMEOUT": "500us"}},
		{"tx shorter than lock", map[string]string{"PAYMENT_LOCK_TIMEOUT": "5s", "PAYMENT_TX_TIMEOUT": "1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %v", tt.env)
			}
		})
	}
}
