// Package config provides configuration loading and validation for the
// server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultPort is the HTTP port used when none is configured.
const DefaultPort = 8080

// Config represents the server configuration. Values come from an optional
// JSON file with environment variables taking precedence; secrets are
// env-only.
type Config struct {
	// Server
	Port int `json:"port,omitempty"`

	// Persistence
	DatabaseURL string `json:"database_url,omitempty"`

	// Auth. JWTSecret is never read from the config file.
	JWTSecret string `json:"-"`

	// Scraping behavior
	UseBrowser          bool `json:"use_browser,omitempty"`
	FetchTimeoutSeconds int  `json:"fetch_timeout_seconds,omitempty"`
	Verbose             bool `json:"verbose,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overlays environment variables onto the config. Env values win
// over file values.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("USE_BROWSER"); v != "" {
		c.UseBrowser = v == "1" || v == "true"
	}
	return nil
}

// Validate checks that the configuration has runnable values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' out of range: %d", c.Port)
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("config error: JWT_SECRET is required")
	}
	if c.FetchTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'fetch_timeout_seconds' must be non-negative")
	}
	return nil
}

// WithDefaults fills zero-valued fields with defaults.
func (c *Config) WithDefaults() *Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.FetchTimeoutSeconds == 0 {
		c.FetchTimeoutSeconds = 10
	}
	return c
}
