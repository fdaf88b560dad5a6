package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
	if cfg.Library.Root == "" {
		t.Error("default library root is empty")
	}
	if !cfg.IsFormatSupported(".mp3") {
		t.Error("expected .mp3 to be supported by default")
	}
}

func TestLoadConfigCreatesDefaultFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "conf", "cadenza.toml")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cadenza.toml")

	cfg := DefaultConfig()
	cfg.Library.Root = "/srv/media/Cadenza"
	cfg.Library.AllowedRoot = "/srv/media"
	cfg.Server.Port = "9090"
	cfg.Import.WatchFolder = "/srv/media/incoming"
	cfg.Import.WatchForChanges = true
	cfg.Logging.Format = "json"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.Library.Root != "/srv/media/Cadenza" {
		t.Errorf("library root not preserved: %q", loaded.Library.Root)
	}
	if loaded.Server.Port != "9090" {
		t.Errorf("server port not preserved: %q", loaded.Server.Port)
	}
	if !loaded.Import.WatchForChanges {
		t.Error("watch flag not preserved")
	}
	if loaded.Logging.Format != "json" {
		t.Errorf("log format not preserved: %q", loaded.Logging.Format)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	content := `
[library]
root = ""
allowed_root = "/home/user"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	// Partial TOML overlays the defaults, so only the explicitly emptied
	// field should trip validation.
	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected invalid config to be rejected")
	}
	if !strings.Contains(err.Error(), "library root") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty allowed root", func(c *Config) { c.Library.AllowedRoot = "" }},
		{"zero max connections", func(c *Config) { c.Database.MaxConnections = 0 }},
		{"no supported formats", func(c *Config) { c.Import.SupportedFormats = nil }},
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"empty host", func(c *Config) { c.Server.Host = "" }},
		{"negative read timeout", func(c *Config) { c.Server.ReadTimeout = -1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation to fail")
			}
		})
	}
}

func TestGetAddress(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.GetAddress(); got != "127.0.0.1:8080" {
		t.Errorf("GetAddress() = %q, want %q", got, "127.0.0.1:8080")
	}
}
