package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.DBPath == "" {
		t.Error("expected a default db path")
	}
	if len(cfg.Projects) == 0 {
		t.Error("expected a seeded project")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sprintline.yaml")
	data := `
server:
  addr: ":9090"
auth:
  jwt_secret: "s3cret"
db_path: "/tmp/test.db"
log_level: debug
projects:
  - code: OPS
    name: Operations
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if len(cfg.Projects) != 1 || cfg.Projects[0].Code != "OPS" {
		t.Errorf("Projects = %v, want one OPS project", cfg.Projects)
	}
	// Unset keys keep their defaults
	if cfg.Auth.AdminUser != "admin" {
		t.Errorf("AdminUser = %q, want default admin", cfg.Auth.AdminUser)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
