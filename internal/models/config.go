package models

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for the fetcher.
type Config struct {
	BasePath    string         `yaml:"base_path" json:"base_path"`
	ChunkSizeKB int            `yaml:"chunk_size_kb" json:"chunk_size_kb"`
	Workers     int            `yaml:"workers" json:"workers"` // concurrent optimizer invocations
	Retry       RetryConfig    `yaml:"retry" json:"retry"`
	Optimize    OptimizeConfig `yaml:"optimize" json:"optimize"`
}

// RetryConfig controls the shared retry policy for probes and downloads:
// a fixed number of attempts with a fixed inter-attempt delay.
type RetryConfig struct {
	MaxAttempts  int `yaml:"max_attempts" json:"max_attempts"`
	DelaySeconds int `yaml:"delay_seconds" json:"delay_seconds"`
}

// Delay returns the inter-attempt delay as a duration.
func (r RetryConfig) Delay() time.Duration {
	return time.Duration(r.DelaySeconds) * time.Second
}

// OptimizeConfig names the external artifact optimizer.
type OptimizeConfig struct {
	Command string `yaml:"command" json:"command"`
}

// DefaultConfig returns the defaults applied when no config file is found.
func DefaultConfig() Config {
	return Config{
		BasePath:    ".",
		ChunkSizeKB: 128,
		Workers:     1,
		Retry: RetryConfig{
			MaxAttempts:  5,
			DelaySeconds: 60,
		},
		Optimize: OptimizeConfig{
			Command: "nwp-optimize",
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("base_path is required")
	}
	if c.ChunkSizeKB <= 0 {
		return fmt.Errorf("chunk_size_kb must be > 0, got %d", c.ChunkSizeKB)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", c.Workers)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be > 0, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.DelaySeconds < 0 {
		return fmt.Errorf("retry.delay_seconds must be >= 0, got %d", c.Retry.DelaySeconds)
	}
	if c.Optimize.Command == "" {
		return fmt.Errorf("optimize.command is required")
	}
	return nil
}
