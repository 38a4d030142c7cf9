// Package config holds the engine's runtime configuration (§4.9/§4.10): a
// nested, JSON-tagged struct loaded from a file or defaulted, following the
// teacher's load/validate idiom.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the engine's top-level configuration.
type Config struct {
	Database DatabaseConfig `json:"database"`
	Log      LogConfig      `json:"log"`
	Session  SessionConfig  `json:"session"`
	Server   ServerConfig   `json:"server"`
}

// DatabaseConfig selects the substrate driver and its connection string.
type DatabaseConfig struct {
	Driver string `json:"driver"` // "sqlite" or "mysql"
	DSN    string `json:"dsn"`
}

// LogConfig carries the configured log level; no component reads it, and
// logging runs at a single verbosity.
type LogConfig struct {
	Level string `json:"level"`
}

// SessionConfig bounds one session's transactional behavior.
type SessionConfig struct {
	TransactionTimeout time.Duration `json:"transaction_timeout"`
}

// ServerConfig is consulted by the optional CLI server entrypoint.
type ServerConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    ":memory:",
		},
		Log: LogConfig{
			Level: "info",
		},
		Session: SessionConfig{
			TransactionTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:4306",
		},
	}
}

// LoadConfig reads configPath (JSON, or TOML when it ends in .toml) over
// DefaultConfig, validating the result. An empty path returns the default.
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	cfg := DefaultConfig()
	if strings.HasSuffix(configPath, ".toml") {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigOrDefault tries the IMMUTASCHEMA_CONFIG env var, then a few
// conventional paths, falling back to DefaultConfig.
func LoadConfigOrDefault() *Config {
	if envPath := os.Getenv("IMMUTASCHEMA_CONFIG"); envPath != "" {
		if cfg, err := LoadConfig(envPath); err == nil {
			return cfg
		}
	}
	for _, path := range []string{"config.json", "config.toml", "./config/config.json"} {
		if abs, err := filepath.Abs(path); err == nil {
			if cfg, err := LoadConfig(abs); err == nil {
				return cfg
			}
		}
	}
	return DefaultConfig()
}

func validateConfig(cfg *Config) error {
	if cfg.Database.Driver != "sqlite" && cfg.Database.Driver != "mysql" {
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database DSN must not be empty")
	}
	if cfg.Session.TransactionTimeout <= 0 {
		return fmt.Errorf("session transaction timeout must be positive")
	}
	return nil
}
