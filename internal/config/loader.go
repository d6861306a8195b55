package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigEnv names an explicit config file.
	ConfigEnv = "ELFINSIGHT_CONFIG"
	// DefaultDir is the per-user directory below $HOME.
	DefaultDir = ".elfinsight"
	// ConfigFile is the file name inside DefaultDir.
	ConfigFile = "config.yaml"
)

// DefaultPath returns the config file used when none is given:
// $ELFINSIGHT_CONFIG, else ~/.elfinsight/config.yaml. It returns "" when
// neither can be determined.
func DefaultPath() string {
	if path := os.Getenv(ConfigEnv); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultDir, ConfigFile)
}

// Load reads the config at path over the defaults and applies environment
// overrides. A missing file yields the defaults; an explicitly named file
// (explicit == true) must exist.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // G304: path comes from the user's own flag or environment.
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err) && !explicit:
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := MergeFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
