package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// envPrefix namespaces the override variables, e.g. STRONGROOM_DATA_DIR.
const envPrefix = "STRONGROOM_"

// Loader reads configuration from a YAML file and the environment.
type Loader struct {
	configPath string
}

// NewLoader creates a loader. An empty configPath makes Load probe the
// default locations.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load assembles the configuration: defaults, then the config file, then
// environment overrides, then validation.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	path := l.configPath
	if path == "" {
		for _, candidate := range defaultPaths() {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func defaultPaths() []string {
	paths := []string{"strongroom.yaml", ".strongroom.yaml"}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "strongroom", "config.yaml"))
	}
	return paths
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func loadEnv(cfg *Config) {
	if v := os.Getenv(envPrefix + "DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv(envPrefix + "BREACH_SERVICE_URL"); v != "" {
		cfg.Breach.ServiceURL = v
	}
	if v := os.Getenv(envPrefix + "CLOUD_REMOTE_FOLDER"); v != "" {
		cfg.Cloud.RemoteFolder = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
