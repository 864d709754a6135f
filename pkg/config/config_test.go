package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that DefaultConfig returns valid defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.OpenSky.BaseURL != "https://opensky-network.org/api" {
		t.Errorf("Expected OpenSky base URL, got %s", cfg.OpenSky.BaseURL)
	}
	if cfg.Refresh.IntervalSeconds != 30 {
		t.Errorf("Expected refresh interval 30s, got %d", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Refresh.RefreshInterval() != 30*time.Second {
		t.Errorf("Expected 30s duration, got %v", cfg.Refresh.RefreshInterval())
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("Expected file cache backend, got %s", cfg.Cache.Backend)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Expected default postgres port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.OpenSky.MinRequestInterval() != 10*time.Second {
		t.Errorf("Expected 10s min interval, got %v", cfg.OpenSky.MinRequestInterval())
	}
	if cfg.OpenSky.RateLimitRetries != 1 {
		t.Errorf("Expected 1 rate limit retry, got %d", cfg.OpenSky.RateLimitRetries)
	}
	if cfg.OpenSky.MaxRetryWait() != 30*time.Second {
		t.Errorf("Expected 30s max retry wait, got %v", cfg.OpenSky.MaxRetryWait())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got: %v", err)
	}
}

// TestLoadNonExistentFile tests that Load returns default config when file doesn't exist.
func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.json")
	if err != nil {
		t.Fatalf("Expected no error for non-existent file, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config, got nil")
	}
	if cfg.Server.Port != "8080" {
		t.Error("Did not get default config for non-existent file")
	}
	if cfg.Refresh.IntervalSeconds != 30 {
		t.Error("Did not get default refresh interval for non-existent file")
	}
}

// TestLoadValidConfig tests loading a valid configuration file.
func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.json")

	testConfig := DefaultConfig()
	testConfig.OpenSky.BaseURL = "https://test.api"
	testConfig.Refresh.IntervalSeconds = 45
	testConfig.Cache.Backend = "postgres"
	testConfig.Database.Host = "db.example.com"
	testConfig.Server.Port = "9090"

	data, err := json.MarshalIndent(testConfig, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal test config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.OpenSky.BaseURL != "https://test.api" {
		t.Errorf("Expected https://test.api, got %s", cfg.OpenSky.BaseURL)
	}
	if cfg.Refresh.IntervalSeconds != 45 {
		t.Errorf("Expected interval 45, got %d", cfg.Refresh.IntervalSeconds)
	}
	if cfg.Cache.Backend != "postgres" {
		t.Errorf("Expected postgres backend, got %s", cfg.Cache.Backend)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("Expected db.example.com, got %s", cfg.Database.Host)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
}

// TestLoadPartialConfig tests that keys missing from the file keep their defaults.
func TestLoadPartialConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "partial.json")
	if err := os.WriteFile(configPath, []byte(`{"server": {"port": "7070"}}`), 0644); err != nil {
		t.Fatalf("Failed to write partial config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("Expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected default host, got %s", cfg.Server.Host)
	}
	if cfg.Refresh.IntervalSeconds != 30 {
		t.Errorf("Expected default interval, got %d", cfg.Refresh.IntervalSeconds)
	}
}

// TestLoadInvalidJSON tests error handling for malformed JSON.
func TestLoadInvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.json")

	if err := os.WriteFile(configPath, []byte("{ invalid json }"), 0644); err != nil {
		t.Fatalf("Failed to write invalid config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("Expected parse error, got: %v", err)
	}
}

// TestSaveConfig tests saving configuration to file.
func TestSaveConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.json")

	cfg := DefaultConfig()
	cfg.Server.Port = "9999"
	cfg.Cache.Path = "/tmp/cache.json"

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Server.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", loaded.Server.Port)
	}
	if loaded.Cache.Path != "/tmp/cache.json" {
		t.Errorf("Expected cache path /tmp/cache.json, got %s", loaded.Cache.Path)
	}
}

// TestEnvironmentOverrides tests UTAHSKY_* environment variable overrides.
func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("UTAHSKY_SERVER_PORT", "7777")
	t.Setenv("UTAHSKY_DATABASE_PASSWORD", "env-password")
	t.Setenv("UTAHSKY_REFRESH_INTERVAL_SECONDS", "60")

	configPath := filepath.Join(t.TempDir(), "config.json")
	testCfg := DefaultConfig()
	testCfg.Database.Password = "original-password"
	if err := testCfg.Save(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != "7777" {
		t.Errorf("Expected port 7777 from env, got %s", cfg.Server.Port)
	}
	if cfg.Database.Password != "env-password" {
		t.Errorf("Expected password from env, got %s", cfg.Database.Password)
	}
	if cfg.Refresh.IntervalSeconds != 60 {
		t.Errorf("Expected interval 60 from env, got %d", cfg.Refresh.IntervalSeconds)
	}
}

// TestValidate tests configuration validation.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Missing base URL", func(c *Config) { c.OpenSky.BaseURL = "" }},
		{"Zero interval", func(c *Config) { c.Refresh.IntervalSeconds = 0 }},
		{"Unknown backend", func(c *Config) { c.Cache.Backend = "redis" }},
		{"Missing probe address", func(c *Config) { c.Network.ProbeAddress = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

// TestCacheFilePath tests cache path resolution.
func TestCacheFilePath(t *testing.T) {
	t.Run("Explicit path", func(t *testing.T) {
		c := CacheConfig{Path: "/var/cache/x.json"}
		got, err := c.CacheFilePath()
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if got != "/var/cache/x.json" {
			t.Errorf("Expected explicit path, got %s", got)
		}
	})

	t.Run("Default path", func(t *testing.T) {
		t.Setenv("XDG_CACHE_HOME", t.TempDir())
		c := CacheConfig{}
		got, err := c.CacheFilePath()
		if err != nil {
			t.Skipf("No user cache dir on this platform: %v", err)
		}
		if filepath.Base(got) != CacheFileName {
			t.Errorf("Expected file name %s, got %s", CacheFileName, got)
		}
	})
}

// TestConnectionString tests DSN construction.
func TestConnectionString(t *testing.T) {
	d := DefaultConfig().Database
	d.Password = "secret"
	want := "host=localhost port=5432 user=opensky password=secret dbname=opensky_utah sslmode=disable"
	if got := d.ConnectionString(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
