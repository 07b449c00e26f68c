package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LISTEN_ADDR", "DATABASE_PATH", "SHIPPING_RATE_INSIDE", "SHIPPING_RATE_OUTSIDE", "DRAFT_DEBOUNCE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.DatabasePath != "pagecart.db" {
		t.Fatalf("expected default database path, got %q", cfg.DatabasePath)
	}
	if cfg.ShippingRateInside != 60 || cfg.ShippingRateOutside != 120 {
		t.Fatalf("unexpected shipping defaults: %d/%d", cfg.ShippingRateInside, cfg.ShippingRateOutside)
	}
	if cfg.DraftDebounce != time.Second {
		t.Fatalf("expected 1s debounce, got %v", cfg.DraftDebounce)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SHIPPING_RATE_OUTSIDE", "-5")
	t.Setenv("DRAFT_DEBOUNCE", "soon")
	t.Setenv("RISK_HIGH_RATIO", "abc")
	t.Setenv("PORT", "9000")
	t.Setenv("LISTEN_ADDR", "")

	cfg := Load()
	if cfg.ShippingRateOutside != 120 {
		t.Fatalf("expected fallback outside rate, got %d", cfg.ShippingRateOutside)
	}
	if cfg.DraftDebounce != time.Second {
		t.Fatalf("expected fallback debounce, got %v", cfg.DraftDebounce)
	}
	if cfg.RiskHighRatio != 50 {
		t.Fatalf("expected fallback ratio, got %v", cfg.RiskHighRatio)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("expected listen addr derived from port, got %q", cfg.ListenAddr)
	}
}
