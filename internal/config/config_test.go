package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dubnacoin")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg := Load()

	if cfg.AppPort != "8080" {
		t.Fatalf("AppPort = %q, want 8080", cfg.AppPort)
	}
	if cfg.AccrualInterval != 10*time.Second {
		t.Fatalf("AccrualInterval = %v, want 10s", cfg.AccrualInterval)
	}
	if cfg.InitDataMaxAge != 24*time.Hour {
		t.Fatalf("InitDataMaxAge = %v, want 24h", cfg.InitDataMaxAge)
	}
	if cfg.TokenTTL != 0 {
		t.Fatalf("TokenTTL = %v, want 0", cfg.TokenTTL)
	}
	if cfg.AutoclickerPricing != "scaled" {
		t.Fatalf("AutoclickerPricing = %q, want scaled", cfg.AutoclickerPricing)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/dubnacoin")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ACCRUAL_INTERVAL", "2s")
	t.Setenv("INIT_DATA_MAX_AGE", "3600")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("CLICK_RATE_LIMIT", "not-a-number")
	t.Setenv("AUTOCLICKER_PRICING", " FLAT ")

	cfg := Load()

	if cfg.AccrualInterval != 2*time.Second {
		t.Fatalf("AccrualInterval = %v, want 2s", cfg.AccrualInterval)
	}
	if cfg.InitDataMaxAge != time.Hour {
		t.Fatalf("InitDataMaxAge = %v, want 1h", cfg.InitDataMaxAge)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.ClickRateLimit != 25 {
		t.Fatalf("ClickRateLimit = %d, want default 25", cfg.ClickRateLimit)
	}
	if cfg.AutoclickerPricing != "flat" {
		t.Fatalf("AutoclickerPricing = %q, want flat", cfg.AutoclickerPricing)
	}
}
