// Package config loads and validates the check configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure
type Config struct {
	Lockfile           string `mapstructure:"lockfile"`
	HistoryFile        string `mapstructure:"history_file"`
	ArchiveFile        string `mapstructure:"archive_file"`
	ArchiveCompression string `mapstructure:"archive_compression"`
	MetricsFile        string `mapstructure:"metrics_file"`
	LogFile            string `mapstructure:"log_file"`

	// Timeframe is the capacity planning horizon in days; the planned
	// growth rate is total capacity spread over it.
	Timeframe int `mapstructure:"timeframe"`
	// MaxAveragingWindow bounds retained history, in days.
	MaxAveragingWindow int `mapstructure:"max_averaging_window"`
	// MinAveragingWindow is the least history, in days, before a growth
	// rate is trusted.
	MinAveragingWindow int `mapstructure:"min_averaging_window"`

	Memory MemoryConfig `mapstructure:"memory"`
	Disk   DiskConfig   `mapstructure:"disk"`
}

// MemoryConfig holds the memory check settings
type MemoryConfig struct {
	Enabled    *bool   `mapstructure:"enabled"`
	WarnGrowth float64 `mapstructure:"warn_growth"`
	CritGrowth float64 `mapstructure:"crit_growth"`
}

// IsEnabled returns whether the memory check should run (default true)
func (c MemoryConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// DiskConfig holds the disk space and inode check settings
type DiskConfig struct {
	Enabled     *bool    `mapstructure:"enabled"`
	Mountpoints []string `mapstructure:"mountpoints"`
	WarnGrowth  float64  `mapstructure:"warn_growth"`
	CritGrowth  float64  `mapstructure:"crit_growth"`
}

// IsEnabled returns whether the disk checks should run (default true)
func (c DiskConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// LoadConfig loads configuration from the given YAML file and CREEP_
// environment variables. Validation is a separate step so callers can
// gather every problem at once.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("CREEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("lockfile", "/var/run/creep.pid")
	v.SetDefault("history_file", "/var/lib/creep/history.yaml")
	v.SetDefault("archive_file", "")
	v.SetDefault("archive_compression", "zstd")
	v.SetDefault("metrics_file", "")
	v.SetDefault("log_file", "")
	v.SetDefault("timeframe", 365)
	v.SetDefault("max_averaging_window", 14)
	v.SetDefault("min_averaging_window", 7)
	v.SetDefault("memory.enabled", true)
	v.SetDefault("memory.warn_growth", 20)
	v.SetDefault("memory.crit_growth", 40)
	v.SetDefault("disk.enabled", true)
	v.SetDefault("disk.mountpoints", []string{"/"})
	v.SetDefault("disk.warn_growth", 20)
	v.SetDefault("disk.crit_growth", 40)
}

// DefaultConfig returns the built-in configuration used when keys are
// absent from the file.
func DefaultConfig() *Config {
	enabled := true
	return &Config{
		Lockfile:           "/var/run/creep.pid",
		HistoryFile:        "/var/lib/creep/history.yaml",
		ArchiveCompression: "zstd",
		Timeframe:          365,
		MaxAveragingWindow: 14,
		MinAveragingWindow: 7,
		Memory: MemoryConfig{
			Enabled:    &enabled,
			WarnGrowth: 20,
			CritGrowth: 40,
		},
		Disk: DiskConfig{
			Enabled:     &enabled,
			Mountpoints: []string{"/"},
			WarnGrowth:  20,
			CritGrowth:  40,
		},
	}
}
