package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "creep.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func boolPtr(v bool) *bool {
	return &v
}

// validConfig returns a configuration that passes every rule, with a real
// directory standing in for the mountpoint.
func validConfig(t *testing.T) *Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Disk.Mountpoints = []string{t.TempDir()}
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "history_file: /tmp/history.yaml\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.HistoryFile != "/tmp/history.yaml" {
		t.Errorf("history_file: got %q", cfg.HistoryFile)
	}
	if cfg.Timeframe != 365 {
		t.Errorf("default timeframe: got %d", cfg.Timeframe)
	}
	if cfg.MaxAveragingWindow != 14 || cfg.MinAveragingWindow != 7 {
		t.Errorf("default windows: got %d/%d", cfg.MaxAveragingWindow, cfg.MinAveragingWindow)
	}
	if cfg.ArchiveCompression != "zstd" {
		t.Errorf("default archive_compression: got %q", cfg.ArchiveCompression)
	}
	if !cfg.Memory.IsEnabled() || !cfg.Disk.IsEnabled() {
		t.Error("both checks should default to enabled")
	}
	if cfg.Memory.WarnGrowth != 20 || cfg.Memory.CritGrowth != 40 {
		t.Errorf("default memory thresholds: got %v/%v", cfg.Memory.WarnGrowth, cfg.Memory.CritGrowth)
	}
	if len(cfg.Disk.Mountpoints) != 1 || cfg.Disk.Mountpoints[0] != "/" {
		t.Errorf("default mountpoints: got %v", cfg.Disk.Mountpoints)
	}
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
lockfile: /run/creep.pid
history_file: /var/lib/creep/history.db
archive_file: /var/lib/creep/archive.csv.zst
archive_compression: lz4
metrics_file: /var/lib/node_exporter/creep.prom
log_file: /var/log/creep.log
timeframe: 180
max_averaging_window: 21
min_averaging_window: 5
memory:
  enabled: false
  warn_growth: 15
  crit_growth: 30
disk:
  enabled: true
  mountpoints: ["/", "/var"]
  warn_growth: 10
  crit_growth: 25
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Lockfile != "/run/creep.pid" {
		t.Errorf("lockfile: got %q", cfg.Lockfile)
	}
	if cfg.HistoryFile != "/var/lib/creep/history.db" {
		t.Errorf("history_file: got %q", cfg.HistoryFile)
	}
	if cfg.ArchiveFile != "/var/lib/creep/archive.csv.zst" || cfg.ArchiveCompression != "lz4" {
		t.Errorf("archive settings: got %q/%q", cfg.ArchiveFile, cfg.ArchiveCompression)
	}
	if cfg.MetricsFile != "/var/lib/node_exporter/creep.prom" {
		t.Errorf("metrics_file: got %q", cfg.MetricsFile)
	}
	if cfg.Timeframe != 180 || cfg.MaxAveragingWindow != 21 || cfg.MinAveragingWindow != 5 {
		t.Errorf("windows: got %d/%d/%d", cfg.Timeframe, cfg.MaxAveragingWindow, cfg.MinAveragingWindow)
	}
	if cfg.Memory.IsEnabled() {
		t.Error("memory check should be disabled")
	}
	if cfg.Memory.WarnGrowth != 15 || cfg.Memory.CritGrowth != 30 {
		t.Errorf("memory thresholds: got %v/%v", cfg.Memory.WarnGrowth, cfg.Memory.CritGrowth)
	}
	if len(cfg.Disk.Mountpoints) != 2 || cfg.Disk.Mountpoints[1] != "/var" {
		t.Errorf("mountpoints: got %v", cfg.Disk.Mountpoints)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := writeConfig(t, "timeframe: [not, a, number\n")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CREEP_TIMEFRAME", "100")
	t.Setenv("CREEP_MEMORY_WARN_GROWTH", "33")

	path := writeConfig(t, "timeframe: 365\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Timeframe != 100 {
		t.Errorf("env override of timeframe: got %d", cfg.Timeframe)
	}
	if cfg.Memory.WarnGrowth != 33 {
		t.Errorf("env override of memory.warn_growth: got %v", cfg.Memory.WarnGrowth)
	}
}

func TestValidateConfigOK(t *testing.T) {
	cfg := validConfig(t)
	if problems := ValidateConfig(cfg); len(problems) != 0 {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestValidateConfigRules(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(t *testing.T, cfg *Config)
		keyword string
	}{
		{
			"zero timeframe",
			func(t *testing.T, cfg *Config) { cfg.Timeframe = 0 },
			"timeframe",
		},
		{
			"zero max window",
			func(t *testing.T, cfg *Config) { cfg.MaxAveragingWindow = 0 },
			"max_averaging_window",
		},
		{
			"max window at half the timeframe",
			func(t *testing.T, cfg *Config) { cfg.Timeframe = 28; cfg.MaxAveragingWindow = 14 },
			"half the timeframe",
		},
		{
			"min window not below max",
			func(t *testing.T, cfg *Config) { cfg.MinAveragingWindow = 14 },
			"min_averaging_window",
		},
		{
			"memory warn not positive",
			func(t *testing.T, cfg *Config) { cfg.Memory.WarnGrowth = 0 },
			"memory.warn_growth",
		},
		{
			"memory crit not positive",
			func(t *testing.T, cfg *Config) { cfg.Memory.CritGrowth = 0 },
			"memory.crit_growth",
		},
		{
			"memory warn above crit",
			func(t *testing.T, cfg *Config) { cfg.Memory.WarnGrowth = 50 },
			"memory.warn_growth must be lower",
		},
		{
			"disk warn above crit",
			func(t *testing.T, cfg *Config) { cfg.Disk.WarnGrowth = 50 },
			"disk.warn_growth must be lower",
		},
		{
			"missing mountpoint",
			func(t *testing.T, cfg *Config) {
				cfg.Disk.Mountpoints = []string{filepath.Join(t.TempDir(), "gone")}
			},
			"does not point to a valid mountpoint",
		},
		{
			"no checks enabled",
			func(t *testing.T, cfg *Config) {
				cfg.Memory.Enabled = boolPtr(false)
				cfg.Disk.Enabled = boolPtr(false)
			},
			"at least one resource check",
		},
		{
			"bad archive compression",
			func(t *testing.T, cfg *Config) { cfg.ArchiveCompression = "brotli" },
			"archive_compression",
		},
		{
			"empty history file",
			func(t *testing.T, cfg *Config) { cfg.HistoryFile = "" },
			"history_file",
		},
	}

	for _, tc := range cases {
		cfg := validConfig(t)
		tc.mutate(t, cfg)
		problems := ValidateConfig(cfg)
		found := false
		for _, p := range problems {
			if strings.Contains(p, tc.keyword) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s: expected a problem mentioning %q, got %v", tc.name, tc.keyword, problems)
		}
	}
}

func TestValidateConfigGathersAllProblems(t *testing.T) {
	cfg := validConfig(t)
	cfg.Timeframe = 0
	cfg.Memory.WarnGrowth = 0
	cfg.Disk.Mountpoints = []string{filepath.Join(t.TempDir(), "gone")}

	problems := ValidateConfig(cfg)
	// Zero timeframe also trips the half-timeframe rule, so at least four.
	if len(problems) < 4 {
		t.Errorf("expected every problem reported at once, got %v", problems)
	}
}

func TestValidateConfigSkipsDisabledSections(t *testing.T) {
	cfg := validConfig(t)
	cfg.Memory.Enabled = boolPtr(false)
	cfg.Memory.WarnGrowth = -1
	cfg.Memory.CritGrowth = -1

	if problems := ValidateConfig(cfg); len(problems) != 0 {
		t.Errorf("disabled section should not be validated, got %v", problems)
	}
}
