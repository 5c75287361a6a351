// Package config defines the Sprintline application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Sprintline configuration.
type Config struct {
	Server   ServerConfig    `json:"server" yaml:"server"`
	Auth     AuthConfig      `json:"auth" yaml:"auth"`
	Projects []ProjectConfig `json:"projects,omitempty" yaml:"projects"` // projects ensured at startup
	DBPath   string          `json:"db_path" yaml:"db_path"`
	LogLevel string          `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":8080"
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	AdminUser string `json:"admin_user" yaml:"admin_user"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass"` // bcrypt-hashed when the admin user is seeded
}

// ProjectConfig defines a project created at startup if it does not exist.
type ProjectConfig struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Auth: AuthConfig{
			AdminUser: "admin",
		},
		DBPath:   "./data/sprintline.db",
		LogLevel: "info",
		Projects: []ProjectConfig{
			{Code: "ENG", Name: "Engineering"},
		},
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
