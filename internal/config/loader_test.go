package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("expected max_conns 15, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Limits.PerPageDefault != 10 || cfg.Limits.PerPageMax != 500 {
		t.Errorf("unexpected pagination limits %+v", cfg.Limits)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
postgres:
  max_conns: 30
auth:
  verify_url: "http://auth.internal:8090"
  timeout: 2s
limits:
  per_page_default: 25
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 30 {
		t.Errorf("expected max_conns 30, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Auth.VerifyURL != "http://auth.internal:8090" {
		t.Errorf("unexpected verify_url %q", cfg.Auth.VerifyURL)
	}
	if cfg.Auth.Timeout != 2*time.Second {
		t.Errorf("expected auth timeout 2s, got %v", cfg.Auth.Timeout)
	}
	if cfg.Limits.PerPageDefault != 25 {
		t.Errorf("expected per_page_default 25, got %d", cfg.Limits.PerPageDefault)
	}
	// untouched values keep their defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS url, got %q", cfg.NATS.URL)
	}
}

func TestLoadMissingYAMLIsNotAnError(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected defaults, got port %s", cfg.Server.Port)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(yamlPath); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	content := `
server:
  port: "9090"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("INVENTORY_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://inv:pw@db:5432/inventory")
	t.Setenv("INVENTORY_PG_MAX_CONNS", "25")
	t.Setenv("INVENTORY_LOG_LEVEL", "warn")
	t.Setenv("INVENTORY_BREAKER_TIMEOUT", "1m")
	t.Setenv("INVENTORY_OTEL_ENABLED", "true")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected env to win, got port %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://inv:pw@db:5432/inventory" {
		t.Errorf("unexpected dsn %q", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if !cfg.OTel.Enabled {
		t.Error("expected otel enabled")
	}
}

func TestValidateRejectsBadBounds(t *testing.T) {
	cfg := Defaults()
	cfg.Limits.PerPageMax = 1 // below default page size
	if err := validate(&cfg); err == nil {
		t.Fatal("expected validation error for inconsistent limits")
	}

	cfg = Defaults()
	cfg.Postgres.DSN = ""
	if err := validate(&cfg); err == nil {
		t.Fatal("expected validation error for empty dsn")
	}
}
