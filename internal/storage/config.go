// Loads the tracker configuration from a YAML file.

package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StoreFile is the default file name of the car store inside DataDir.
const StoreFile = "car.json"

// Config is the tracker configuration.
//
// Loaded from a YAML file; a missing file yields the defaults.
type Config struct {
	// DataDir holds the store when StorePath is not set.
	DataDir string `yaml:"data_dir"`

	// StorePath is the JSON file holding the cars. Defaults to DataDir/car.json.
	StorePath string `yaml:"store_path"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	// HTTP is the address the web server listens on.
	HTTP string `yaml:"http"`

	// SearchCacheEntries bounds the memoized search results. 0 disables it.
	SearchCacheEntries int `yaml:"search_cache_entries"`

	// WriteRatePerMin limits mutating HTTP requests.
	// 0 means unlimited.
	WriteRatePerMin int `yaml:"write_rate_per_min"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		DataDir:            "./data",
		LogLevel:           "info",
		HTTP:               "localhost:8080",
		SearchCacheEntries: 128,
		WriteRatePerMin:    120,
	}
}

// Store returns the effective store path.
func (c *Config) Store() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	return filepath.Join(c.DataDir, StoreFile)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" && c.StorePath == "" {
		return errors.New("data_dir or store_path is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if c.SearchCacheEntries < 0 {
		return errors.New("search_cache_entries must be non-negative")
	}
	if c.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	return nil
}

// LoadConfig reads path over the defaults. An empty path or a missing file
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // G304: path is given by the operator
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		default:
			d := yaml.NewDecoder(bytes.NewReader(data))
			d.KnownFields(true)
			if err := d.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
