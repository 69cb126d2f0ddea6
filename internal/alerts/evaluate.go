package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/willibrandon/creep/internal/history"
)

// Evaluate classifies current daily growth against the planned rate. Both
// comparisons are strictly greater than, so a rate exactly at a limit
// keeps the lower severity.
func Evaluate(key history.Key, current, planned float64, th Thresholds) Evaluation {
	warnLimit := planned * (1 + th.WarnPct/100)
	critLimit := planned * (1 + th.CritPct/100)

	sev := OK
	switch {
	case current > critLimit:
		sev = Critical
	case current > warnLimit:
		sev = Warning
	}

	name := SeriesName(key)
	units := SeriesUnits(key)
	var msg string
	if sev == OK {
		msg = fmt.Sprintf("%s is OK (%s %s).", name, FormatRate(current), units)
	} else {
		msg = fmt.Sprintf("%s exceeds planned growth - current: %s %s, planned: %s %s.",
			name, FormatRate(current), units, FormatRate(planned), units)
	}

	return Evaluation{
		Key:       key,
		Severity:  sev,
		Message:   msg,
		Current:   current,
		Planned:   planned,
		WarnLimit: warnLimit,
		CritLimit: critLimit,
	}
}

// SeriesName is the human-facing label of a series in status messages.
func SeriesName(key history.Key) string {
	if key.Resource == history.Disk {
		return capitalize(fmt.Sprintf("%s usage growth for mount %s", key.Kind, key.Mount))
	}
	return capitalize(fmt.Sprintf("%s usage growth", key.Resource))
}

// SeriesUnits is the rate unit of a series. Inode series count inodes,
// everything else is megabytes.
func SeriesUnits(key history.Key) string {
	if key.Resource == history.Disk && key.Kind == history.Inode {
		return "inodes/day"
	}
	return "MB/day"
}

// FormatRate renders a rate without trailing zeros.
func FormatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
