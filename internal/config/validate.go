package config

import (
	"fmt"
	"os"
)

// ValidateConfig checks every rule and returns the full list of problems
// so an operator can fix the file in one pass. An empty slice means the
// configuration is usable.
func ValidateConfig(cfg *Config) []string {
	var problems []string

	if cfg.HistoryFile == "" {
		problems = append(problems, "history_file cannot be empty.")
	}
	if cfg.Lockfile == "" {
		problems = append(problems, "lockfile cannot be empty.")
	}

	if cfg.Timeframe <= 0 {
		problems = append(problems,
			fmt.Sprintf("timeframe must be a positive number of days, got %d.", cfg.Timeframe))
	}
	if cfg.MaxAveragingWindow <= 0 {
		problems = append(problems,
			fmt.Sprintf("max_averaging_window must be a positive number of days, got %d.", cfg.MaxAveragingWindow))
	}
	if float64(cfg.MaxAveragingWindow) >= 0.5*float64(cfg.Timeframe) {
		problems = append(problems,
			"max_averaging_window must be smaller than half the timeframe.")
	}
	if cfg.MinAveragingWindow >= cfg.MaxAveragingWindow {
		problems = append(problems,
			"min_averaging_window must be smaller than max_averaging_window.")
	}

	if cfg.Memory.IsEnabled() {
		problems = append(problems,
			validateThresholds("memory", cfg.Memory.WarnGrowth, cfg.Memory.CritGrowth)...)
	}
	if cfg.Disk.IsEnabled() {
		problems = append(problems,
			validateThresholds("disk", cfg.Disk.WarnGrowth, cfg.Disk.CritGrowth)...)
		for _, mount := range cfg.Disk.Mountpoints {
			if _, err := os.Stat(mount); err != nil {
				problems = append(problems,
					fmt.Sprintf("disk mountpoint %s does not point to a valid mountpoint.", mount))
			}
		}
	}
	if !cfg.Memory.IsEnabled() && !cfg.Disk.IsEnabled() {
		problems = append(problems, "at least one resource check must be enabled.")
	}

	switch cfg.ArchiveCompression {
	case "", "none", "gzip", "lz4", "zstd":
	default:
		problems = append(problems,
			fmt.Sprintf("archive_compression must be one of none, gzip, lz4, zstd, got %q.", cfg.ArchiveCompression))
	}

	return problems
}

func validateThresholds(section string, warn, crit float64) []string {
	var problems []string
	if warn <= 0 {
		problems = append(problems,
			fmt.Sprintf("%s.warn_growth must be positive, got %v.", section, warn))
	}
	if crit <= 0 {
		problems = append(problems,
			fmt.Sprintf("%s.crit_growth must be positive, got %v.", section, crit))
	}
	if warn >= crit {
		problems = append(problems,
			fmt.Sprintf("%s.warn_growth must be lower than %s.crit_growth.", section, section))
	}
	return problems
}
