// Package alerts classifies growth rates against operator thresholds and
// defines the severity model for monitoring output.
package alerts

import (
	"fmt"

	"github.com/willibrandon/creep/internal/history"
)

// Severity orders check outcomes from healthy to unknown. The numeric
// values double as NRPE exit codes. Aggregation keeps the highest value,
// so an unknown outcome outranks critical.
type Severity int

const (
	OK Severity = iota
	Warning
	Critical
	Unknown
)

func (s Severity) String() string {
	switch s {
	case OK:
		return "ok"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// ExitCode reports the NRPE process exit code for the severity.
func (s Severity) ExitCode() int {
	if s < OK || s > Unknown {
		return int(Unknown)
	}
	return int(s)
}

// Thresholds is the allowed growth over plan, in percent of the planned
// rate.
type Thresholds struct {
	WarnPct float64
	CritPct float64
}

// Evaluation is the classified outcome for one series.
type Evaluation struct {
	Key       history.Key
	Severity  Severity
	Message   string
	Current   float64
	Planned   float64
	WarnLimit float64
	CritLimit float64
}
