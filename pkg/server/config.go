package server

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds server configuration. Values are resolved in order:
// defaults, then YAML file, then CHAT_* environment variables, then flags.
type Config struct {
	Addr        string `yaml:"addr" envconfig:"ADDR"`                 // TCP bind address
	WSAddr      string `yaml:"ws_addr" envconfig:"WS_ADDR"`           // WebSocket bind address (empty = disabled)
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"` // HTTP bind address for /metrics (empty = disabled)
	LogLevel    string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" envconfig:"LOG_FORMAT"`
}

// DefaultConfig returns a config with sensible defaults.
// Port 65432 is the historical relay port; clients assume it.
func DefaultConfig() Config {
	return Config{
		Addr:        ":65432",
		MetricsAddr: ":65434",
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// LoadFile overlays the config with values from a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// FromEnv overlays the config with CHAT_-prefixed environment variables
// (CHAT_ADDR, CHAT_WS_ADDR, CHAT_METRICS_ADDR, CHAT_LOG_LEVEL, ...).
func (c *Config) FromEnv() error {
	if err := envconfig.Process("chat", c); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}
