package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Set defaults
	config := GetDefaults()

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/doc-sentinel/")
	viper.AddConfigPath("$HOME/.doc-sentinel/")

	// Environment variable overrides
	viper.SetEnvPrefix("DOCSENTINEL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.Region.HeaderBandRatio < 0 || config.Region.HeaderBandRatio > 1 {
		return fmt.Errorf("invalid header band ratio: %f (must be within [0, 1])", config.Region.HeaderBandRatio)
	}

	if config.Redaction.Fill != "black" && config.Redaction.Fill != "white" {
		return fmt.Errorf("invalid redaction fill: %s (must be black or white)", config.Redaction.Fill)
	}

	if config.Redaction.Placeholder == "" {
		return fmt.Errorf("redaction placeholder must not be empty")
	}

	if config.NER.Threshold < 0 || config.NER.Threshold > 1 {
		return fmt.Errorf("invalid NER threshold: %f (must be within [0, 1])", config.NER.Threshold)
	}

	if config.Pipeline.PageWorkers < 0 {
		return fmt.Errorf("invalid page worker count: %d", config.Pipeline.PageWorkers)
	}

	return nil
}

// Watch starts watching the configuration file for changes
func Watch(config *Config, callback func(*Config)) error {
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := &Config{}
		if err := viper.Unmarshal(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		if err := validateConfig(newConfig); err != nil {
			// Log error but don't crash
			return
		}

		callback(newConfig)
	})

	return nil
}
