// Package config loads the gateway configuration. The configuration is
// constructed once at startup and read-only afterwards.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete gateway configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BackendConfig locates the backing store.
type BackendConfig struct {
	// Driver is the database/sql driver name: sqlite3 or postgres.
	Driver string `yaml:"driver"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:  ServerConfig{Host: "127.0.0.1", Port: 4411},
		Backend: BackendConfig{Driver: "sqlite3"},
	}
}

// Load reads a YAML config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg.withDefaults(), nil
}

// withDefaults fills any field the file left empty.
func (c Config) withDefaults() Config {
	def := Default()
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Backend.Driver == "" {
		c.Backend.Driver = def.Backend.Driver
	}
	return c
}

// Validate checks the configuration for values the gateway cannot run
// with.
func (c Config) Validate() error {
	switch c.Backend.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported backend driver %q", c.Backend.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}
