// Package config loads the server configuration from an optional YAML
// file with environment-variable overrides. Missing file and missing
// variables fall back to defaults, so a bare binary starts with a local
// SQLite file on port 8080.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Leave struct {
		// DefaultBalance is granted to employees registered without an
		// explicit initial balance.
		DefaultBalance int `yaml:"default_balance"`
	} `yaml:"leave"`

	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
}

// Load reads the configuration. The file at path is optional; values
// from it are overridden by SERVER_PORT, DB_PATH, DEFAULT_LEAVE_BALANCE,
// LOG_LEVEL and CORS_ORIGINS (comma-separated).
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.CORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	cfg.Database.Path = "leave_mgmt.sqlite3"
	cfg.Leave.DefaultBalance = 24
	cfg.Logging.Level = "info"
	return cfg
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT must be an integer, got %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DEFAULT_LEAVE_BALANCE"); v != "" {
		balance, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEFAULT_LEAVE_BALANCE must be an integer, got %q", v)
		}
		cfg.Leave.DefaultBalance = balance
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if cfg.Leave.DefaultBalance < 0 {
		return fmt.Errorf("default leave balance must not be negative")
	}
	return nil
}
