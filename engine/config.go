package engine

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/kmuto-dev/mvdb/logger"
)

// Config configures one engine instance.
type Config struct {
	// Dir is where the commit log lives
	Dir string `yaml:"dir"`
	// Log configures the engine's logger
	Log logger.Config `yaml:"log"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Dir: "mvdb-data",
		Log: logger.Config{
			Level:      "info",
			Format:     "json",
			OutputFile: "stderr",
		},
	}
}

// LoadConfig reads a yaml config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "os.ReadFile failed")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "yaml.Unmarshal failed")
	}
	return cfg, nil
}
