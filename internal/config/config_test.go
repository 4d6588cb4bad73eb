package config_test

import (
	"testing"
	"time"

	"github.com/blogpush/notify-backend/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/push?sslmode=disable")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.PageSize != 1000 {
		t.Errorf("default page size = %d, want 1000", cfg.PageSize)
	}
	if cfg.Concurrency != 1 {
		t.Errorf("default concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.DryRun {
		t.Error("dry run must never default to enabled")
	}
	if cfg.ReceiptLookback != 24*time.Hour {
		t.Errorf("default lookback = %s, want 24h", cfg.ReceiptLookback)
	}
	if cfg.CleanupAge != 48*time.Hour {
		t.Errorf("default cleanup age = %s, want 48h", cfg.CleanupAge)
	}
}

func TestLoadRejectsSweepInsideLookback(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/push?sslmode=disable")
	t.Setenv("RECEIPT_LOOKBACK", "24h")
	t.Setenv("CLEANUP_AGE", "1h")

	if _, err := config.Load(); err == nil {
		t.Fatal("a sweep age inside the receipt lookback must be rejected")
	}
}

func TestLoadRejectsBadPageSize(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/push?sslmode=disable")
	t.Setenv("PAGE_SIZE", "0")

	if _, err := config.Load(); err == nil {
		t.Fatal("zero page size must be rejected")
	}
}

func TestLoadDSNFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "push")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "postgres://app:secret@db:5433/push?sslmode=disable"
	if cfg.DatabaseURL != want {
		t.Errorf("dsn = %q, want %q", cfg.DatabaseURL, want)
	}
}
