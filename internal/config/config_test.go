package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "development-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "carebridge-api" {
		t.Errorf("app name = %q", cfg.App.Name)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Storage.PresignTTL != time.Hour {
		t.Errorf("presign ttl = %v", cfg.Storage.PresignTTL)
	}
	if cfg.AISummary.RequestTimeout != 90*time.Second {
		t.Errorf("webhook timeout = %v", cfg.AISummary.RequestTimeout)
	}
	if cfg.AISummary.OutputFormat != "html" {
		t.Errorf("output format = %q", cfg.AISummary.OutputFormat)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "development-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AI_SUMMARY_CACHE_TTL", "30m")
	t.Setenv("STORAGE_REPORT_BUCKET", "reports-staging")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.AISummary.CacheTTL != 30*time.Minute {
		t.Errorf("cache ttl = %v", cfg.AISummary.CacheTTL)
	}
	if cfg.Storage.ReportBucket != "reports-staging" {
		t.Errorf("bucket = %q", cfg.Storage.ReportBucket)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("origins = %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestProductionValidation(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_SSLMODE", "disable")

	_, err := Load()
	if err == nil {
		t.Fatal("expected production validation errors")
	}
	for _, want := range []string{"JWT_SECRET must be at least 32", "DB_SSLMODE=disable", "AI_SUMMARY_WEBHOOK_URL", "STORAGE_ACCESS_KEY_ID"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got %v", want, err)
		}
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "care", User: "u", Password: "p", SSLMode: "require"}
	dsn := d.DSN()
	for _, want := range []string{"host=db", "dbname=care", "sslmode=require", "port=5432"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn missing %q: %s", want, dsn)
		}
	}
}
