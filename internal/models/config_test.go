package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfigIsValid ensures the shipped defaults pass validation.
func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Retry.Delay())
	assert.Equal(t, "nwp-optimize", cfg.Optimize.Command)
	assert.Equal(t, 1, cfg.Workers)
}

// TestConfigValidateRejectsBadValues covers each validation rule.
func TestConfigValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty base path", func(c *Config) { c.BasePath = "" }, "base_path"},
		{"zero chunk size", func(c *Config) { c.ChunkSizeKB = 0 }, "chunk_size_kb"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"negative delay", func(c *Config) { c.Retry.DelaySeconds = -5 }, "delay_seconds"},
		{"missing optimizer", func(c *Config) { c.Optimize.Command = "" }, "optimize.command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
