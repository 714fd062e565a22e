// Package config loads application configuration from a YAML file with
// environment overrides. Only non-secret operational settings live here;
// everything sensitive stays inside the encrypted vault.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	// Storage paths.
	Storage StorageConfig `yaml:"storage"`

	// Breach lookup service.
	Breach BreachConfig `yaml:"breach"`

	// Cloud sync behavior.
	Cloud CloudConfig `yaml:"cloud"`

	// Logging.
	Log LogConfig `yaml:"log"`
}

// StorageConfig selects where the vault directory lives.
type StorageConfig struct {
	// DataDir is the directory holding the vault files.
	DataDir string `yaml:"data_dir"`
}

// BreachConfig configures the k-anonymity breach lookup.
type BreachConfig struct {
	// ServiceURL is the base URL of the range API.
	ServiceURL string `yaml:"service_url"`
}

// CloudConfig configures sync behavior. Credentials are not here; they are
// stored in the vault's encrypted settings.
type CloudConfig struct {
	// RemoteFolder is the directory created on the sync host.
	RemoteFolder string `yaml:"remote_folder"`
}

// LogConfig controls log output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{DataDir: defaultDataDir()},
		Breach:  BreachConfig{ServiceURL: "https://api.pwnedpasswords.com"},
		Cloud:   CloudConfig{RemoteFolder: "strongroom"},
		Log:     LogConfig{Level: "info"},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "strongroom")
	}
	return ".strongroom"
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir must not be empty")
	}
	if c.Breach.ServiceURL == "" {
		return errors.New("breach.service_url must not be empty")
	}
	if c.Cloud.RemoteFolder == "" {
		return errors.New("cloud.remote_folder must not be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
