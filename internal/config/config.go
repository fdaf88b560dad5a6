package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Library  LibraryConfig  `toml:"library"`
	Database DatabaseConfig `toml:"database"`
	Import   ImportConfig   `toml:"import"`
	Server   ServerConfig   `toml:"server"`
	Logging  LoggingConfig  `toml:"logging"`
}

// LibraryConfig describes the managed library root and path security bounds
type LibraryConfig struct {
	Root        string `toml:"root"`
	AllowedRoot string `toml:"allowed_root"` // paths outside this root are rejected
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path           string `toml:"path"` // empty means <library root>/Database/cadenza.db
	MaxConnections int    `toml:"max_connections"`
}

// ImportConfig contains import pipeline configuration
type ImportConfig struct {
	SupportedFormats []string `toml:"supported_formats"`
	WatchFolder      string   `toml:"watch_folder"`
	WatchForChanges  bool     `toml:"watch_for_changes"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	EnableCORS  bool   `toml:"enable_cors"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		Library: LibraryConfig{
			Root:        filepath.Join(home, "Cadenza"),
			AllowedRoot: home,
		},
		Database: DatabaseConfig{
			Path:           "",
			MaxConnections: 5,
		},
		Import: ImportConfig{
			SupportedFormats: []string{".mp3", ".flac", ".wav", ".m4a", ".ogg"},
			WatchFolder:      "",
			WatchForChanges:  false,
		},
		Server: ServerConfig{
			Port:        "8080",
			Host:        "127.0.0.1",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Cadenza Media Library Configuration
# This file contains all configuration options for the Cadenza library manager.
# Edit the values below to customize your library settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Library.Root == "" {
		return fmt.Errorf("library root cannot be empty")
	}
	if c.Library.AllowedRoot == "" {
		return fmt.Errorf("library allowed root cannot be empty")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if len(c.Import.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsFormatSupported checks if an audio file extension is supported
func (c *Config) IsFormatSupported(ext string) bool {
	for _, supported := range c.Import.SupportedFormats {
		if supported == ext {
			return true
		}
	}
	return false
}
