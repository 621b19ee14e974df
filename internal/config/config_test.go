package config

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.HTTPPort)
	}
	if cfg.JWTIssuer != "campus-cart" {
		t.Fatalf("expected default issuer, got %q", cfg.JWTIssuer)
	}
	if cfg.RateWindow() != time.Minute {
		t.Fatalf("expected 1m rate window, got %v", cfg.RateWindow())
	}
	if cfg.AccessTTL() != time.Hour {
		t.Fatalf("expected 1h access ttl, got %v", cfg.AccessTTL())
	}
}

func TestConfigAllowedOrigins(t *testing.T) {
	cfg := &Config{WSAllowedOrigins: " https://a.edu , ,https://b.edu"}
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "https://a.edu" || got[1] != "https://b.edu" {
		t.Fatalf("unexpected origins: %+v", got)
	}

	empty := &Config{}
	if len(empty.AllowedOrigins()) != 0 {
		t.Fatalf("expected no origins for empty config")
	}
}
