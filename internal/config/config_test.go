package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DOCUMENT_STORE", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("PERSIST_BOOKINGS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.DocumentStore != StoreMemory {
		t.Fatalf("expected memory document store, got %s", cfg.DocumentStore)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected default session ttl, got %s", cfg.SessionTTL)
	}
	if cfg.PersistBookings {
		t.Fatalf("expected booking persistence disabled by default")
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DOCUMENT_STORE", " DynamoDB ")
	t.Setenv("DOCUMENTS_TABLE", "docs")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("AUTH_RATE_LIMIT_RPS", "2.5")
	t.Setenv("AUTH_RATE_LIMIT_BURST", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("PERSIST_BOOKINGS", "true")
	t.Setenv("EMAIL_PROVIDER", "SES")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DocumentStore != StoreDynamoDB {
		t.Fatalf("expected dynamodb store, got %q", cfg.DocumentStore)
	}
	if cfg.DocumentsTable != "docs" {
		t.Fatalf("expected table override, got %s", cfg.DocumentsTable)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Fatalf("expected ttl override, got %s", cfg.SessionTTL)
	}
	if cfg.AuthRateLimitRPS != 2.5 || cfg.AuthRateLimitBurst != 4 {
		t.Fatalf("expected rate limit overrides, got %v/%d", cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.PersistBookings {
		t.Fatalf("expected booking persistence enabled")
	}
	if !cfg.UsesAWS() {
		t.Fatalf("expected AWS usage for dynamodb + ses")
	}
}
