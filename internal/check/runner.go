// Package check orchestrates one measurement and evaluation pass over
// the configured resources and serializes runs through a lock file.
package check

import (
	"fmt"
	"time"

	"github.com/willibrandon/creep/internal/alerts"
	"github.com/willibrandon/creep/internal/config"
	"github.com/willibrandon/creep/internal/growth"
	"github.com/willibrandon/creep/internal/history"
	"github.com/willibrandon/creep/internal/logger"
	"github.com/willibrandon/creep/internal/metricsfile"
	"github.com/willibrandon/creep/internal/status"
	"github.com/willibrandon/creep/internal/storage/archive"
	"github.com/willibrandon/creep/internal/sysinfo"
)

// Runner drives one check pass. Memory is checked first, then disk
// space for every mountpoint, then inodes for every mountpoint.
type Runner struct {
	cfg      *config.Config
	store    *history.Store
	reporter *status.Reporter

	// Optional run artifacts, nil when not configured.
	Archive *archive.Writer
	Metrics *metricsfile.Exporter

	// Fetchers are swappable for tests.
	FetchMemory func() (sysinfo.Usage, error)
	FetchDisk   func(mount string) (sysinfo.Usage, error)
	FetchInodes func(mount string) (sysinfo.Usage, error)

	// Now supplies sample timestamps.
	Now func() time.Time
}

// NewRunner returns a Runner wired to the live system fetchers.
func NewRunner(cfg *config.Config, store *history.Store, reporter *status.Reporter) *Runner {
	return &Runner{
		cfg:         cfg,
		store:       store,
		reporter:    reporter,
		FetchMemory: sysinfo.FetchMemoryUsage,
		FetchDisk:   sysinfo.FetchDiskUsage,
		FetchInodes: sysinfo.FetchInodeUsage,
		Now:         time.Now,
	}
}

// Run performs one full check pass: sample every enabled resource,
// evaluate each series against its thresholds, and persist the updated
// history. A fetch or save failure aborts the pass; samples recorded
// before the failure are lost with it.
func (r *Runner) Run() error {
	if r.cfg.Memory.IsEnabled() {
		usage, err := r.FetchMemory()
		if err != nil {
			return fmt.Errorf("failed to read memory usage: %w", err)
		}
		th := alerts.Thresholds{WarnPct: r.cfg.Memory.WarnGrowth, CritPct: r.cfg.Memory.CritGrowth}
		if err := r.checkSeries(history.MemoryKey(), usage, th); err != nil {
			return err
		}
	}

	if r.cfg.Disk.IsEnabled() {
		th := alerts.Thresholds{WarnPct: r.cfg.Disk.WarnGrowth, CritPct: r.cfg.Disk.CritGrowth}
		for _, kind := range []history.DiskKind{history.Space, history.Inode} {
			for _, mount := range r.cfg.Disk.Mountpoints {
				usage, err := r.fetchDiskUsage(mount, kind)
				if err != nil {
					return fmt.Errorf("failed to read disk %s usage for %s: %w", kind, mount, err)
				}
				if err := r.checkSeries(history.DiskKey(mount, kind), usage, th); err != nil {
					return err
				}
			}
		}
	}

	if err := r.store.Save(); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}

	// Archive and metrics are best-effort artifacts of a completed run.
	r.flushArchive()
	r.writeMetrics()
	return nil
}

func (r *Runner) fetchDiskUsage(mount string, kind history.DiskKind) (sysinfo.Usage, error) {
	if kind == history.Inode {
		return r.FetchInodes(mount)
	}
	return r.FetchDisk(mount)
}

// checkSeries records the new sample, then either reports the series as
// Unknown (not enough history yet) or evaluates its growth rate.
func (r *Runner) checkSeries(key history.Key, usage sysinfo.Usage, th alerts.Thresholds) error {
	if err := r.store.AddAt(key, usage.Used, r.Now().Unix()); err != nil {
		return err
	}

	span, err := r.store.DataSpanDays(key)
	if err != nil {
		return err
	}
	samples, err := r.store.Query(key)
	if err != nil {
		return err
	}
	if r.Metrics != nil {
		r.Metrics.ObserveSeries(key, span, len(samples))
	}

	margin, err := r.store.VerifyDataSpan(key)
	if err != nil {
		return err
	}
	if margin < 0 {
		r.reporter.Update(alerts.Unknown, insufficientDataMessage(key, -margin))
		if r.Metrics != nil {
			r.Metrics.ObserveUnknown(key)
		}
		logger.Debug("series needs more data",
			"series", key.String(),
			"span_days", span,
			"days_needed", -margin)
		return nil
	}

	planned := growth.PlannedRate(usage.Used, usage.Total, r.cfg.Timeframe)
	current := growth.CurrentRate(samples)
	ev := alerts.Evaluate(key, current, planned, th)
	r.reporter.Update(ev.Severity, ev.Message)
	if r.Metrics != nil {
		r.Metrics.ObserveEvaluation(ev)
	}
	logger.Debug("series evaluated",
		"series", key.String(),
		"current_rate", current,
		"planned_rate", planned,
		"severity", ev.Severity.String())
	return nil
}

func insufficientDataMessage(key history.Key, daysNeeded float64) string {
	days := alerts.FormatRate(daysNeeded)
	if key.Resource == history.Memory {
		return fmt.Sprintf("There is not enough data to calculate current memory usage growth: %s days more is needed.", days)
	}
	return fmt.Sprintf("There is not enough data to calculate current disk %s usage growth for mountpoint %s: %s days more is needed.", key.Kind, key.Mount, days)
}

func (r *Runner) flushArchive() {
	if r.Archive == nil {
		return
	}
	if err := r.Archive.Flush(); err != nil {
		logger.Warn("failed to write archive", "error", err)
	}
}

func (r *Runner) writeMetrics() {
	if r.Metrics == nil {
		return
	}
	r.Metrics.ObserveRun(r.reporter.Severity(), r.Now())
	if err := r.Metrics.WriteFile(r.cfg.MetricsFile); err != nil {
		logger.Warn("failed to write metrics file", "error", err)
	}
}
