package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Steam     SteamConfig     `toml:"steam"`
	Reconcile ReconcileConfig `toml:"reconcile"`
	Database  DatabaseConfig  `toml:"database"`
	Logging   LoggingConfig   `toml:"logging"`
}

// SteamConfig contains workshop service settings.
type SteamConfig struct {
	AppID             uint32  `toml:"app_id"`
	LibraryPath       string  `toml:"library_path"`
	PIDFile           string  `toml:"pid_file"`
	RequireRunning    bool    `toml:"require_running"`
	WebAPIURL         string  `toml:"web_api_url"`
	APIKey            string  `toml:"api_key"`
	AccessToken       string  `toml:"access_token"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	PollIntervalMS    int     `toml:"poll_interval_ms"`
	RequestTimeoutS   int     `toml:"request_timeout_s"`
}

// PollInterval returns the callback pump interval.
func (s SteamConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request HTTP timeout.
func (s SteamConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutS) * time.Second
}

// ReconcileConfig controls how removal candidates are computed.
type ReconcileConfig struct {
	ExcludedTags    []string `toml:"excluded_tags"`
	DefaultSelected bool     `toml:"default_selected"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoggingConfig contains log settings.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // Log destination while the TUI owns the terminal
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks the values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.Steam.AppID == 0 {
		return fmt.Errorf("%w: steam.app_id must be set", ErrInvalidConfig)
	}
	if c.Steam.PollIntervalMS <= 0 {
		return fmt.Errorf("%w: steam.poll_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.Steam.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: steam.requests_per_second must be positive", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path must be set", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: config file already exists at %s", ErrInvalidArgument, path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
