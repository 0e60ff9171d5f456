// Package config loads and watches the node's configuration.
package config

import (
	"fmt"
	"time"
)

// Config is the full node configuration.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Logging LoggingConfig `yaml:"logging"`
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
}

// LoggingConfig controls log output and rotation.
type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// APIConfig controls the read-only HTTP API.
type APIConfig struct {
	Enabled      bool     `yaml:"enabled"`
	ListenAddr   string   `yaml:"listen_addr"`
	RateLimit    float64  `yaml:"rate_limit"`
	RateBurst    int      `yaml:"rate_burst"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// StoreConfig controls checkpoint persistence.
type StoreConfig struct {
	Path               string        `yaml:"path"`
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
	JournalEvents      bool          `yaml:"journal_events"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Logging: LoggingConfig{
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		API: APIConfig{
			Enabled:    true,
			ListenAddr: ":8080",
			RateLimit:  50,
			RateBurst:  100,
		},
		Store: StoreConfig{
			Path:               "data/chainchat.db",
			CheckpointInterval: 30 * time.Second,
			JournalEvents:      true,
		},
	}
}

// Validate rejects configurations the node cannot run with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if c.API.Enabled && c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr is required when the API is enabled")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Store.CheckpointInterval <= 0 {
		return fmt.Errorf("store.checkpoint_interval must be positive")
	}
	return nil
}
