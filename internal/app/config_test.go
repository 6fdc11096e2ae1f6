package app

import (
	"reflect"
	"testing"
)

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" https://a.example ,, https://b.example ,")
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV = %v, want %v", got, want)
	}
	if out := splitCSV(""); out != nil {
		t.Fatalf("expected nil for empty input, got %v", out)
	}
}

func TestHTTPAddr(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PORT", "")
	if got := httpAddr(); got != ":8080" {
		t.Fatalf("default addr = %q", got)
	}
	t.Setenv("PORT", "9000")
	if got := httpAddr(); got != ":9000" {
		t.Fatalf("PORT addr = %q", got)
	}
	t.Setenv("HTTP_ADDR", "127.0.0.1:7000")
	if got := httpAddr(); got != "127.0.0.1:7000" {
		t.Fatalf("HTTP_ADDR addr = %q", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"JWT_SECRET_KEY", "EMBEDDED_WORKER", "DB_AUTO_MIGRATE", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if !cfg.EmbeddedWorker || !cfg.AutoMigrate {
		t.Fatalf("expected embedded worker and auto migrate on by default: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("expected no configured origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.Limits.MaxRequestedSessions <= 0 {
		t.Fatalf("generation limits not loaded: %+v", cfg.Limits)
	}
}
