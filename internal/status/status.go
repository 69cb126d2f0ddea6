// Package status aggregates per-resource check outcomes into the single
// status line and exit code a monitoring agent consumes. Log records go
// to the logger; stdout carries nothing but the status line.
package status

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/willibrandon/creep/internal/alerts"
	"github.com/willibrandon/creep/internal/logger"
)

// Reporter collects per-resource outcomes and emits one aggregated
// status line. The worst severity wins and messages keep arrival order.
type Reporter struct {
	severity alerts.Severity
	messages []string
	out      io.Writer
}

// NewReporter returns a reporter writing status lines to out. A nil out
// writes to stdout.
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	return &Reporter{severity: alerts.OK, out: out}
}

// Update records one outcome. The aggregate severity only escalates.
func (r *Reporter) Update(sev alerts.Severity, msg string) {
	if sev > r.severity {
		r.severity = sev
	}
	if msg != "" {
		r.messages = append(r.messages, msg)
	}
}

// Severity reports the current aggregate severity.
func (r *Reporter) Severity() alerts.Severity {
	return r.severity
}

// Messages returns the collected messages in arrival order.
func (r *Reporter) Messages() []string {
	return append([]string(nil), r.messages...)
}

// NotifyAggregated prints the combined status line and returns the exit
// code for the aggregate severity.
func (r *Reporter) NotifyAggregated() int {
	line := strings.Join(r.messages, " ")
	fmt.Fprintln(r.out, line)
	logger.Info("aggregated status",
		"severity", r.severity.String(),
		"message", line)
	return r.severity.ExitCode()
}

// NotifyImmediate prints a single status message that replaces any
// aggregated output and returns the exit code to terminate with. Used
// for conditions that make the rest of the run moot.
func (r *Reporter) NotifyImmediate(sev alerts.Severity, msg string) int {
	fmt.Fprintln(r.out, msg)
	logger.Info("immediate status",
		"severity", sev.String(),
		"message", msg)
	return sev.ExitCode()
}
