package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"sysconfigd/pkg/logging"
)

// LoadConfig reads configPath and overlays it onto DefaultConfig. A missing
// file is not an error (same not-found-is-not-an-error behavior as the
// teacher's LoadConfig): defaults are returned as-is.
func LoadConfig(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("Config", "no config file found at %s, using defaults", configPath)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", configPath, err)
	}

	logging.Info("Config", "loaded configuration from %s", configPath)
	return cfg, nil
}
