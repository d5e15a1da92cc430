// Package config loads the server's TOML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Engine EngineConfig `toml:"engine"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
	Metrics        bool     `toml:"metrics"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	Path string `toml:"path"` // SQLite database path; ":memory:" for dev
}

// EngineConfig configures the matching and logging core.
type EngineConfig struct {
	Collector         string   `toml:"collector"`          // name printed on receipts
	AllowedRequesters []string `toml:"allowed_requesters"` // authorization allow-list
	SessionTTL        string   `toml:"session_ttl"`        // e.g. "10m"
	LogFirstRow       int      `toml:"log_first_row"`
	MaxAppendAttempts int      `toml:"max_append_attempts"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    8080,
			Metrics: true,
		},
		Store: StoreConfig{
			Path: "ticksnap.db",
		},
		Engine: EngineConfig{
			Collector:         "Collector",
			SessionTTL:        "10m",
			LogFirstRow:       2,
			MaxAppendAttempts: 5,
		},
	}
}

// Load reads the TOML file at path over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if _, err := c.Engine.SessionTTLDuration(); err != nil {
		return err
	}
	if c.Engine.MaxAppendAttempts < 1 {
		return fmt.Errorf("engine.max_append_attempts must be at least 1")
	}
	if c.Engine.LogFirstRow < 1 {
		return fmt.Errorf("engine.log_first_row must be at least 1")
	}
	return nil
}

// SessionTTLDuration parses the session TTL string.
func (e EngineConfig) SessionTTLDuration() (time.Duration, error) {
	if e.SessionTTL == "" {
		return 10 * time.Minute, nil
	}
	d, err := time.ParseDuration(e.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("engine.session_ttl: %w", err)
	}
	return d, nil
}
