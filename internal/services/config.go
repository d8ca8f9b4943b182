package services

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"nwpfetch/internal/models"
)

// LoadConfig loads configuration from file and environment.
// Priority order (highest to lowest):
//  1. CLI flags (applied by the commands after loading)
//  2. Environment variables
//  3. Configuration file
//  4. Default values
func LoadConfig(configFile string) (*models.Config, error) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("nwpfetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/nwpfetch")
		viper.AddConfigPath("/etc/nwpfetch")
	}

	viper.SetEnvPrefix("NWPFETCH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - defaults fill in below
	}

	defaults := models.DefaultConfig()
	config := models.Config{
		BasePath:    viper.GetString("base_path"),
		ChunkSizeKB: viper.GetInt("chunk_size_kb"),
		Workers:     viper.GetInt("workers"),
		Retry: models.RetryConfig{
			MaxAttempts:  viper.GetInt("retry.max_attempts"),
			DelaySeconds: viper.GetInt("retry.delay_seconds"),
		},
		Optimize: models.OptimizeConfig{
			Command: viper.GetString("optimize.command"),
		},
	}

	if config.BasePath == "" {
		config.BasePath = defaults.BasePath
	}
	if config.ChunkSizeKB == 0 {
		config.ChunkSizeKB = defaults.ChunkSizeKB
	}
	if config.Workers == 0 {
		config.Workers = defaults.Workers
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if !viper.IsSet("retry.delay_seconds") && config.Retry.DelaySeconds == 0 {
		config.Retry.DelaySeconds = defaults.Retry.DelaySeconds
	}
	if config.Optimize.Command == "" {
		config.Optimize.Command = defaults.Optimize.Command
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &config, nil
}

// GetConfigFilePath returns the path to the config file that was loaded
func GetConfigFilePath() string {
	return viper.ConfigFileUsed()
}
