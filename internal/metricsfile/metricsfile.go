// Package metricsfile exports check results in the Prometheus text
// format for node_exporter's textfile collector. The file is rewritten
// atomically on every run, so scrapes never see a partial export.
package metricsfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/willibrandon/creep/internal/alerts"
	"github.com/willibrandon/creep/internal/history"
)

// Exporter collects per-series gauges over one run and writes them out
// through its own registry, keeping the textfile free of Go runtime
// metrics.
type Exporter struct {
	registry *prometheus.Registry

	currentRate  *prometheus.GaugeVec
	plannedRate  *prometheus.GaugeVec
	warnLimit    *prometheus.GaugeVec
	critLimit    *prometheus.GaugeVec
	severity     *prometheus.GaugeVec
	dataSpanDays *prometheus.GaugeVec
	samples      *prometheus.GaugeVec

	checkSeverity prometheus.Gauge
	lastRun       prometheus.Gauge
}

var seriesLabels = []string{"resource", "mount", "kind"}

// NewExporter creates an Exporter with all gauges registered on a fresh
// registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		currentRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creep_growth_current_rate",
			Help: "Observed growth rate from the least-squares fit, in MB/day or inodes/day.",
		}, seriesLabels),
		plannedRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creep_growth_planned_rate",
			Help: "Planned growth rate derived from the configured timeframe.",
		}, seriesLabels),
		warnLimit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creep_growth_warn_limit",
			Help: "Rate above which the series is reported as warning.",
		}, seriesLabels),
		critLimit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creep_growth_crit_limit",
			Help: "Rate above which the series is reported as critical.",
		}, seriesLabels),
		severity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creep_series_severity",
			Help: "Per-series check result (0=ok, 1=warning, 2=critical, 3=unknown).",
		}, seriesLabels),
		dataSpanDays: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creep_series_data_span_days",
			Help: "Days covered by the retained samples of the series.",
		}, seriesLabels),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "creep_series_samples",
			Help: "Number of retained samples in the series.",
		}, seriesLabels),
		checkSeverity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "creep_check_severity",
			Help: "Overall check result (0=ok, 1=warning, 2=critical, 3=unknown).",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "creep_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last completed check run.",
		}),
	}

	e.registry.MustRegister(
		e.currentRate,
		e.plannedRate,
		e.warnLimit,
		e.critLimit,
		e.severity,
		e.dataSpanDays,
		e.samples,
		e.checkSeverity,
		e.lastRun,
	)
	return e
}

func seriesLabelValues(key history.Key) prometheus.Labels {
	labels := prometheus.Labels{
		"resource": key.Resource.String(),
		"mount":    "",
		"kind":     "",
	}
	if key.Resource == history.Disk {
		labels["mount"] = key.Mount
		labels["kind"] = key.Kind.String()
	}
	return labels
}

// ObserveSeries records the history coverage of one series.
func (e *Exporter) ObserveSeries(key history.Key, spanDays float64, sampleCount int) {
	labels := seriesLabelValues(key)
	e.dataSpanDays.With(labels).Set(spanDays)
	e.samples.With(labels).Set(float64(sampleCount))
}

// ObserveEvaluation records the rates, limits, and result of one
// evaluated series.
func (e *Exporter) ObserveEvaluation(ev alerts.Evaluation) {
	labels := seriesLabelValues(ev.Key)
	e.currentRate.With(labels).Set(ev.Current)
	e.plannedRate.With(labels).Set(ev.Planned)
	e.warnLimit.With(labels).Set(ev.WarnLimit)
	e.critLimit.With(labels).Set(ev.CritLimit)
	e.severity.With(labels).Set(float64(ev.Severity))
}

// ObserveUnknown records a series that could not be evaluated yet.
func (e *Exporter) ObserveUnknown(key history.Key) {
	e.severity.With(seriesLabelValues(key)).Set(float64(alerts.Unknown))
}

// ObserveRun records the overall result and completion time of the run.
func (e *Exporter) ObserveRun(severity alerts.Severity, at time.Time) {
	e.checkSeverity.Set(float64(severity))
	e.lastRun.Set(float64(at.Unix()))
}

// WriteFile writes the registry to path in the Prometheus text format.
// The write goes through a temp file and rename, so readers never see a
// partial file.
func (e *Exporter) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("metrics file %s: %w", path, err)
	}
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("metrics file %s: %w", path, err)
	}
	return nil
}
