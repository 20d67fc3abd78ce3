// Package config holds the optional YAML configuration for the explorer.
// Every setting has a default so the CLI works with no config file at all;
// values in the file go through environment variable expansion before
// parsing.
package config

import (
	"fmt"
	"log/slog"
	"os"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	App    AppConfig    `yaml:"app"`
	Server ServerConfig `yaml:"server"`
	Index  IndexConfig  `yaml:"index"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// ServerConfig holds the HTTP explorer settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Address returns the HTTP listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// IndexConfig holds the SQLite inventory settings.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// Validate validates the whole configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Index.Validate()
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		App:    AppConfig{LogLevel: slog.LevelInfo},
		Server: ServerConfig{Port: 8765},
		Index:  IndexConfig{Path: "tensorview.db"},
	}
}

// Load reads a YAML config file over the defaults already in cfg, expanding
// $VAR references from the environment first.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the --config flag.
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
