package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of ~/.cozyfs/config.toml (or config.yaml,
// tried as a fallback so operators migrating from a YAML-based
// deployment are not forced to convert by hand).
type Config struct {
	BufferBytes     int    `toml:"buffer_bytes,omitempty" yaml:"buffer_bytes,omitempty"`
	BackupEnabled   bool   `toml:"backup_enabled,omitempty" yaml:"backup_enabled,omitempty"`
	RefreshOnIdle   bool   `toml:"refresh_on_idle,omitempty" yaml:"refresh_on_idle,omitempty"`
	PersistFile     string `toml:"persist_file,omitempty" yaml:"persist_file,omitempty"`
	IdleTickerCron  string `toml:"idle_ticker_cron,omitempty" yaml:"idle_ticker_cron,omitempty"`
}

var configDirOverride string

// setConfigDir lets --config-dir or COZYFS_HOME override the default.
func setConfigDir(dir string) {
	configDirOverride = dir
}

func configDir() string {
	if configDirOverride != "" {
		return configDirOverride
	}
	if v := os.Getenv("COZYFS_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".cozyfs")
	}
	return filepath.Join(home, ".cozyfs")
}

func defaultConfig() *Config {
	return &Config{
		BufferBytes:    16 << 20,
		BackupEnabled:  true,
		RefreshOnIdle:  true,
		IdleTickerCron: "@every 1m",
	}
}

// loadConfig reads config.toml, falling back to config.yaml, returning
// defaults when neither exists.
func loadConfig() (*Config, error) {
	cfg := defaultConfig()

	tomlPath := filepath.Join(configDir(), "config.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", tomlPath, err)
		}
		return cfg, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", tomlPath, err)
	}

	yamlPath := filepath.Join(configDir(), "config.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", yamlPath, err)
		}
		return cfg, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", yamlPath, err)
	}

	return cfg, nil
}
