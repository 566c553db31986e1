package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete loom configuration
type Config struct {
	Merge   MergeConfig   `mapstructure:"merge"`
	AI      AIConfig      `mapstructure:"ai"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// MergeConfig controls merge engine behavior
type MergeConfig struct {
	// TargetBranch is the branch merged content is reconciled against
	TargetBranch string `mapstructure:"target_branch"`
	// ReportsDir is where JSON merge reports are persisted
	ReportsDir string `mapstructure:"reports_dir"`
	// DryRun disables all writes: no reports, no merged files
	DryRun bool `mapstructure:"dry_run"`
}

// AIConfig controls the AI conflict resolver
type AIConfig struct {
	// Enabled turns the AI resolver on; when false a no-op resolver is used
	// and AI-required conflicts escalate to human review
	Enabled bool `mapstructure:"enabled"`
	// Model is the Gemini model used for conflict resolution
	Model string `mapstructure:"model"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR
	Level string `mapstructure:"level"`
	// Dir is the directory for the merge log; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Merge: MergeConfig{
			TargetBranch: "main",
			ReportsDir:   "reports",
			DryRun:       false,
		},
		AI: AIConfig{
			Enabled: false,
			Model:   "gemini-2.0-flash",
		},
		Logging: LoggingConfig{
			Level: "INFO",
			Dir:   "",
		},
	}
}

// SetDefaults registers all default values with viper so they apply even
// without a config file.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("merge.target_branch", defaults.Merge.TargetBranch)
	viper.SetDefault("merge.reports_dir", defaults.Merge.ReportsDir)
	viper.SetDefault("merge.dry_run", defaults.Merge.DryRun)

	viper.SetDefault("ai.enabled", defaults.AI.Enabled)
	viper.SetDefault("ai.model", defaults.AI.Model)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load unmarshals the current viper state into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "loom")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".loom"
	}
	return filepath.Join(home, ".config", "loom")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
