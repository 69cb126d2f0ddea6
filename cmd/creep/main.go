package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/willibrandon/creep/internal/alerts"
	"github.com/willibrandon/creep/internal/check"
	"github.com/willibrandon/creep/internal/config"
	"github.com/willibrandon/creep/internal/history"
	"github.com/willibrandon/creep/internal/logger"
	"github.com/willibrandon/creep/internal/metricsfile"
	"github.com/willibrandon/creep/internal/render"
	"github.com/willibrandon/creep/internal/status"
	"github.com/willibrandon/creep/internal/storage/archive"
	"github.com/willibrandon/creep/internal/storage/sqlite"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	configPath string
	verbose    bool
	toStderr   bool

	graphMemory bool
	graphMount  string
	graphKind   string
	days        int

	// exitCode is handed to os.Exit after Execute, so deferred cleanup
	// inside the commands still runs.
	exitCode int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "creep",
		Short: "Resource growth health check",
		Long: `creep samples memory, disk space, and inode usage, keeps a bounded
history of past samples, estimates the growth rate by least-squares
regression, and compares it against the growth you planned for.

Made to run from cron or a systemd timer, one sample per run. The
result is printed to stdout with NRPE exit codes (0=ok, 1=warning,
2=critical, 3=unknown).`,
		Version:       version,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&toStderr, "stderr", "s", false, "log to stderr instead of the log file")
	_ = rootCmd.MarkPersistentFlagRequired("config")

	rootCmd.AddCommand(
		newClearCmd(),
		newHistoryCmd(),
		newGraphCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		// Error already printed by cobra
		exitCode = int(alerts.Unknown)
	}
	os.Exit(exitCode)
}

// runCheck performs one full check run: sample, evaluate, persist,
// notify. All failures before the aggregated notification surface as
// one immediate Unknown.
func runCheck() error {
	reporter := status.NewReporter(os.Stdout)

	cfg, ok := loadValidConfig(reporter)
	if !ok {
		return nil
	}

	initLogging(cfg)
	defer logger.Close()

	log := logger.With("run_id", uuid.NewString())
	log.Info("starting check", "version", version, "config", configPath)

	if err := check.AcquireLockFile(cfg.Lockfile); err != nil {
		if errors.Is(err, check.ErrLockHeld) {
			exitCode = reporter.NotifyImmediate(alerts.Unknown, "Another creep run is already in progress.")
			return nil
		}
		exitCode = reporter.NotifyImmediate(alerts.Unknown, err.Error())
		return nil
	}
	defer func() {
		if err := check.ReleaseLockFile(cfg.Lockfile); err != nil {
			logger.Warn("failed to release lock file", "error", err)
		}
	}()

	// The sink must be in place before Load, or samples evicted while
	// restoring the persisted history bypass the journal.
	var sink *archive.Writer
	if cfg.ArchiveFile != "" {
		sink = archive.NewWriter(cfg.ArchiveFile, cfg.ArchiveCompression)
	}

	store, err := openStore(cfg, sink)
	if err != nil {
		exitCode = reporter.NotifyImmediate(alerts.Unknown, err.Error())
		return nil
	}

	runner := check.NewRunner(cfg, store, reporter)
	runner.Archive = sink
	if cfg.MetricsFile != "" {
		runner.Metrics = metricsfile.NewExporter()
	}

	if err := runner.Run(); err != nil {
		log.Error("check run failed", "error", err)
		exitCode = reporter.NotifyImmediate(alerts.Unknown, err.Error())
		return nil
	}

	exitCode = reporter.NotifyAggregated()
	log.Info("check finished", "severity", reporter.Severity().String(), "exit_code", exitCode)
	return nil
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the recorded history",
		Long:  `Drop every retained sample and persist the empty history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear()
		},
	}
}

func runClear() error {
	reporter := status.NewReporter(os.Stdout)

	cfg, ok := loadValidConfig(reporter)
	if !ok {
		return nil
	}

	initLogging(cfg)
	defer logger.Close()

	if err := check.AcquireLockFile(cfg.Lockfile); err != nil {
		if errors.Is(err, check.ErrLockHeld) {
			exitCode = reporter.NotifyImmediate(alerts.Unknown, "Another creep run is already in progress.")
			return nil
		}
		exitCode = reporter.NotifyImmediate(alerts.Unknown, err.Error())
		return nil
	}
	defer func() {
		if err := check.ReleaseLockFile(cfg.Lockfile); err != nil {
			logger.Warn("failed to release lock file", "error", err)
		}
	}()

	backend, err := newBackend(cfg.HistoryFile)
	if err != nil {
		exitCode = reporter.NotifyImmediate(alerts.Unknown, err.Error())
		return nil
	}
	store := history.NewStore(backend, cfg.MaxAveragingWindow, cfg.MinAveragingWindow)
	store.Clear()
	if err := store.Save(); err != nil {
		exitCode = reporter.NotifyImmediate(alerts.Unknown, err.Error())
		return nil
	}

	logger.Info("history cleared", "history_file", cfg.HistoryFile)
	exitCode = reporter.NotifyImmediate(alerts.Unknown, "History data has been cleared.")
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the recorded history",
		Long:  `Print the retained series with sample counts, growth rates, and trends. Read-only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory()
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "limit the view to the last N days")
	return cmd
}

func runHistory() error {
	cfg, err := loadInspectionConfig()
	if err != nil {
		return err
	}

	initLogging(cfg)
	defer logger.Close()

	store, err := openStore(cfg, nil)
	if err != nil {
		return err
	}

	out, err := render.HistoryView(store, days)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Plot one series as an ASCII chart",
		Long:  `Plot the retained samples of one series. Pick the series with --memory, or --mount plus --kind. Read-only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph()
		},
	}
	cmd.Flags().BoolVar(&graphMemory, "memory", false, "plot the memory series")
	cmd.Flags().StringVar(&graphMount, "mount", "", "plot a disk series for this mountpoint")
	cmd.Flags().StringVar(&graphKind, "kind", "space", "disk series kind: space or inode")
	cmd.Flags().IntVar(&days, "days", 0, "limit the plot to the last N days")
	return cmd
}

func runGraph() error {
	key, err := graphKey()
	if err != nil {
		return err
	}

	cfg, err := loadInspectionConfig()
	if err != nil {
		return err
	}

	initLogging(cfg)
	defer logger.Close()

	store, err := openStore(cfg, nil)
	if err != nil {
		return err
	}

	out, err := render.GraphView(store, key, days, render.TerminalWidth())
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func graphKey() (history.Key, error) {
	if graphMemory {
		return history.MemoryKey(), nil
	}
	if graphMount == "" {
		return history.Key{}, errors.New("either --memory or --mount is required")
	}
	kind, err := history.ParseDiskKind(graphKind)
	if err != nil {
		return history.Key{}, err
	}
	return history.DiskKey(graphMount, kind), nil
}

// loadValidConfig loads and validates the config for the mutating
// commands. Failures are reported as an immediate Unknown and leave the
// exit code set.
func loadValidConfig(reporter *status.Reporter) (*config.Config, bool) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		exitCode = reporter.NotifyImmediate(alerts.Unknown, err.Error())
		return nil, false
	}
	if problems := config.ValidateConfig(cfg); len(problems) > 0 {
		exitCode = reporter.NotifyImmediate(alerts.Unknown, "Configuration file contains errors: "+strings.Join(problems, " "))
		return nil, false
	}
	return cfg, true
}

// loadInspectionConfig loads the config for the read-only commands,
// which report failures as plain errors instead of check results.
func loadInspectionConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if problems := config.ValidateConfig(cfg); len(problems) > 0 {
		return nil, errors.New("Configuration file contains errors: " + strings.Join(problems, " "))
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) {
	level := logger.LevelInfo
	if verbose {
		level = logger.LevelDebug
	}
	logger.InitLogger(level, cfg.LogFile, toStderr)
}

func openStore(cfg *config.Config, sink *archive.Writer) (*history.Store, error) {
	backend, err := newBackend(cfg.HistoryFile)
	if err != nil {
		return nil, err
	}
	store := history.NewStore(backend, cfg.MaxAveragingWindow, cfg.MinAveragingWindow)
	if sink != nil {
		store.SetArchive(sink)
	}
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// newBackend picks the history backend by file extension: .db, .sqlite,
// and .sqlite3 get SQLite, everything else the YAML file.
func newBackend(path string) (history.Backend, error) {
	if sqlite.IsSQLitePath(path) {
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		return sqlite.NewHistoryStore(db), nil
	}
	return history.NewFileBackend(path), nil
}
