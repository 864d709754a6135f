package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. UTAHSKY_SERVER_PORT.
const EnvPrefix = "UTAHSKY"

// CacheFileName is the file the disk cache writes inside its directory.
const CacheFileName = "opensky-cache.json"

// Config represents the complete application configuration.
type Config struct {
	OpenSky  OpenSkyConfig  `json:"opensky" mapstructure:"opensky"`
	Refresh  RefreshConfig  `json:"refresh" mapstructure:"refresh"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Database DatabaseConfig `json:"database" mapstructure:"database"`
	Network  NetworkConfig  `json:"network" mapstructure:"network"`
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// OpenSkyConfig contains settings for the OpenSky REST API.
type OpenSkyConfig struct {
	// BaseURL is the API base URL (default: https://opensky-network.org/api)
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// RequestTimeoutSeconds bounds a single HTTP request
	RequestTimeoutSeconds int `json:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`

	// MinRequestIntervalSeconds is the minimum time between API calls.
	// Anonymous users only see new data every 10 seconds.
	MinRequestIntervalSeconds float64 `json:"min_request_interval_seconds" mapstructure:"min_request_interval_seconds"`

	// RateLimitRetries is how often a 429 response is retried (0 disables)
	RateLimitRetries int `json:"rate_limit_retries" mapstructure:"rate_limit_retries"`

	// MaxRetryWaitSeconds caps the wait before a retry. A longer Retry-After
	// fails the refresh instead.
	MaxRetryWaitSeconds int `json:"max_retry_wait_seconds" mapstructure:"max_retry_wait_seconds"`
}

// RefreshConfig controls the periodic auto-refresh cycle.
type RefreshConfig struct {
	// IntervalSeconds is the sleep between automatic refreshes (default: 30)
	IntervalSeconds int `json:"interval_seconds" mapstructure:"interval_seconds"`

	// AutoStart starts the cycle right after the initial load
	AutoStart bool `json:"auto_start" mapstructure:"auto_start"`
}

// CacheConfig selects where the last good snapshot is kept.
type CacheConfig struct {
	// Backend is "file" or "postgres"
	Backend string `json:"backend" mapstructure:"backend"`

	// Path is the cache file for the file backend.
	// Empty means <user cache dir>/opensky-utah/opensky-cache.json.
	Path string `json:"path" mapstructure:"path"`
}

// DatabaseConfig contains PostgreSQL settings for the postgres cache backend.
type DatabaseConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	Database string `json:"database" mapstructure:"database"`
	Username string `json:"username" mapstructure:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password" mapstructure:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode" mapstructure:"ssl_mode"`

	MaxOpenConns int `json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns" mapstructure:"max_idle_conns"`
}

// NetworkConfig controls the connectivity monitor.
type NetworkConfig struct {
	// ProbeAddress is a host:port dialed to decide reachability
	ProbeAddress string `json:"probe_address" mapstructure:"probe_address"`

	ProbeIntervalSeconds int `json:"probe_interval_seconds" mapstructure:"probe_interval_seconds"`
	ProbeTimeoutSeconds  int `json:"probe_timeout_seconds" mapstructure:"probe_timeout_seconds"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host" mapstructure:"host"`

	// Port is the HTTP server port (default: 8080)
	Port string `json:"port" mapstructure:"port"`

	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string `json:"allowed_origins" mapstructure:"allowed_origins"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level" mapstructure:"level"`
}

// Load reads configuration from a JSON file and applies UTAHSKY_* environment
// overrides. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OpenSky: OpenSkyConfig{
			BaseURL:                   "https://opensky-network.org/api",
			RequestTimeoutSeconds:     30,
			MinRequestIntervalSeconds: 10,
			RateLimitRetries:          1,
			MaxRetryWaitSeconds:       30,
		},
		Refresh: RefreshConfig{
			IntervalSeconds: 30,
			AutoStart:       true,
		},
		Cache: CacheConfig{
			Backend: "file",
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "opensky_utah",
			Username:     "opensky",
			SSLMode:      "disable",
			MaxOpenConns: 4,
			MaxIdleConns: 2,
		},
		Network: NetworkConfig{
			ProbeAddress:         "opensky-network.org:443",
			ProbeIntervalSeconds: 5,
			ProbeTimeoutSeconds:  3,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	if c.OpenSky.BaseURL == "" {
		return errors.New("opensky.base_url is required")
	}
	if c.Refresh.IntervalSeconds <= 0 {
		return fmt.Errorf("refresh.interval_seconds must be positive, got %d", c.Refresh.IntervalSeconds)
	}
	switch c.Cache.Backend {
	case "file", "postgres":
	default:
		return fmt.Errorf("cache.backend must be file or postgres, got %q", c.Cache.Backend)
	}
	if c.Network.ProbeAddress == "" {
		return errors.New("network.probe_address is required")
	}
	return nil
}

// RefreshInterval returns the auto-refresh period.
func (c *RefreshConfig) RefreshInterval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *OpenSkyConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// MinRequestInterval returns the minimum spacing between API calls.
func (c *OpenSkyConfig) MinRequestInterval() time.Duration {
	return time.Duration(c.MinRequestIntervalSeconds * float64(time.Second))
}

// MaxRetryWait returns the longest wait before retrying a rate-limited request.
func (c *OpenSkyConfig) MaxRetryWait() time.Duration {
	return time.Duration(c.MaxRetryWaitSeconds) * time.Second
}

// ProbeInterval returns how often reachability is re-checked.
func (c *NetworkConfig) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSeconds) * time.Second
}

// ProbeTimeout returns the dial timeout of a single probe.
func (c *NetworkConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}

// CacheFilePath resolves the cache file, defaulting into the user cache directory.
func (c *CacheConfig) CacheFilePath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(dir, "opensky-utah", CacheFileName), nil
}

// ConnectionString builds a lib/pq keyword/value DSN.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode,
	)
}

// setDefaults registers every key with viper so AutomaticEnv can override
// values that never appear in the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("opensky.base_url", d.OpenSky.BaseURL)
	v.SetDefault("opensky.request_timeout_seconds", d.OpenSky.RequestTimeoutSeconds)
	v.SetDefault("opensky.min_request_interval_seconds", d.OpenSky.MinRequestIntervalSeconds)
	v.SetDefault("opensky.rate_limit_retries", d.OpenSky.RateLimitRetries)
	v.SetDefault("opensky.max_retry_wait_seconds", d.OpenSky.MaxRetryWaitSeconds)

	v.SetDefault("refresh.interval_seconds", d.Refresh.IntervalSeconds)
	v.SetDefault("refresh.auto_start", d.Refresh.AutoStart)

	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.path", d.Cache.Path)

	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.database", d.Database.Database)
	v.SetDefault("database.username", d.Database.Username)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.ssl_mode", d.Database.SSLMode)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", d.Database.MaxIdleConns)

	v.SetDefault("network.probe_address", d.Network.ProbeAddress)
	v.SetDefault("network.probe_interval_seconds", d.Network.ProbeIntervalSeconds)
	v.SetDefault("network.probe_timeout_seconds", d.Network.ProbeTimeoutSeconds)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)

	v.SetDefault("logging.level", d.Logging.Level)
}
