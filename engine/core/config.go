package core

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

/**
 * @brief Application settings, read from an optional TOML file.
 */
type Config struct {
	/** @brief One of debug, info, warn, error. */
	LogLevel string `toml:"log_level"`
	/** @brief Directory scanned for pipeline descriptions. */
	PipelinesDir string `toml:"pipelines_dir"`
	/** @brief Keep running and reload descriptions when they change. */
	Watch bool `toml:"watch"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		PipelinesDir: "assets/pipelines",
	}
}

// LoadConfig reads path on top of the defaults. Keys missing from the file
// keep their default value; unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Apply pushes the settings that affect package state, currently the log
// level.
func (c Config) Apply() error {
	if c.LogLevel == "" {
		return nil
	}
	return SetLogLevel(c.LogLevel)
}
