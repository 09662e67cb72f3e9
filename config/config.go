// Package config loads and validates the pool's on-disk configuration.
// LoadYAML/SaveYAML are reproduced from the teacher's own config-loading
// sibling package; Validate mirrors the teacher's Config.Validate, applied
// to subprocess-worker settings instead of goroutine-pool tuning knobs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PoolConfig is the YAML-loadable shape of the settings procpool.Option
// otherwise sets in code. cmd/poolctl loads one of these at startup so a
// deployment can tune worker count and mode without a rebuild.
type PoolConfig struct {
	NumWorkers     int    `yaml:"num_workers"`
	LongLived      bool   `yaml:"long_lived"`
	UseCallWrapper bool   `yaml:"use_call_wrapper"`
	ControllerFIFO string `yaml:"controller_fifo,omitempty"`
}

// DefaultPoolConfig returns the configuration cmd/poolctl falls back to
// when no file is given.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		NumWorkers: 4,
		LongLived:  true,
	}
}

// Validate checks the configuration and returns an error if invalid.
func (c *PoolConfig) Validate() error {
	if c.NumWorkers <= 0 {
		return fmt.Errorf("config: invalid config: num_workers must be > 0")
	}
	return nil
}

// LoadYAML loads configuration from a YAML file.
func LoadYAML(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return nil
}

// SaveYAML saves configuration to a YAML file.
func SaveYAML(path string, cfg interface{}) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
