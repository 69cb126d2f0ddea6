package render

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/xlab/treeprint"

	"github.com/willibrandon/creep/internal/alerts"
	"github.com/willibrandon/creep/internal/growth"
	"github.com/willibrandon/creep/internal/history"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	risingColor = color.New(color.FgRed).SprintFunc()
	easingColor = color.New(color.FgGreen).SprintFunc()
	mutedColor  = color.New(color.FgHiBlack).SprintFunc()
)

// SeriesStats summarizes one stored series for display.
type SeriesStats struct {
	Key      history.Key
	Samples  int
	SpanDays float64
	// Rate is the least-squares growth per day over the retained window.
	Rate float64
	// Trend is the EWMA of successive pairwise rates, leaning recent.
	Trend float64
	// Values holds the sample values in timestamp order.
	Values []float64
	LastAt time.Time
}

// HistoryView renders the whole store: a series tree, a stats table,
// and a growth rate bar chart. Read-only; nothing is added or saved.
func HistoryView(store *history.Store, days int) (string, error) {
	stats, err := collectAllStats(store, days)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(headerColor("Growth history") + "\n")
	sb.WriteString(renderTree(stats) + "\n")

	table, err := renderStatsTable(stats)
	if err != nil {
		return "", err
	}
	sb.WriteString(table + "\n")

	chart, err := renderRateChart(stats)
	if err != nil {
		return "", err
	}
	if chart != "" {
		sb.WriteString("\n" + headerColor("Growth per day") + "\n")
		sb.WriteString(chart)
	}
	return sb.String(), nil
}

// collectAllStats gathers stats for memory and for both kinds of every
// allocated mountpoint, memory first.
func collectAllStats(store *history.Store, days int) ([]SeriesStats, error) {
	keys := []history.Key{history.MemoryKey()}
	mounts := store.Mounts()
	sort.Strings(mounts)
	for _, mount := range mounts {
		keys = append(keys, history.DiskKey(mount, history.Space))
		keys = append(keys, history.DiskKey(mount, history.Inode))
	}

	stats := make([]SeriesStats, 0, len(keys))
	for _, key := range keys {
		st, err := collectStats(store, key, days)
		if err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func collectStats(store *history.Store, key history.Key, days int) (SeriesStats, error) {
	samples, err := store.Query(key)
	if err != nil {
		return SeriesStats{}, err
	}
	samples = clipToDays(samples, days)

	st := SeriesStats{Key: key, Samples: len(samples)}
	if len(samples) == 0 {
		return st, nil
	}

	st.Rate = growth.CurrentRate(samples)
	st.Trend = growth.SmoothedRate(samples)

	stamps := sortedStamps(samples)
	st.Values = make([]float64, len(stamps))
	for i, ts := range stamps {
		st.Values[i] = samples[ts]
	}
	// Span over the displayed window, so --days clips it too
	st.SpanDays = math.Round(float64(stamps[len(stamps)-1]-stamps[0])/86400*100) / 100
	st.LastAt = time.Unix(stamps[len(stamps)-1], 0)
	return st, nil
}

// clipToDays keeps samples newer than days ago. days <= 0 keeps all.
func clipToDays(samples map[int64]float64, days int) map[int64]float64 {
	if days <= 0 {
		return samples
	}
	cutoff := time.Now().Unix() - int64(days)*86400
	out := make(map[int64]float64, len(samples))
	for ts, v := range samples {
		if ts > cutoff {
			out[ts] = v
		}
	}
	return out
}

func sortedStamps(samples map[int64]float64) []int64 {
	stamps := make([]int64, 0, len(samples))
	for ts := range samples {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })
	return stamps
}

func renderTree(stats []SeriesStats) string {
	tree := treeprint.New()
	tree.SetValue("history")

	var disk treeprint.Tree
	var mountBranches = map[string]treeprint.Tree{}
	for _, st := range stats {
		label := fmt.Sprintf("%s [%d samples]", seriesLeaf(st.Key), st.Samples)
		if st.Key.Resource == history.Memory {
			tree.AddNode(label)
			continue
		}
		if disk == nil {
			disk = tree.AddBranch("disk")
		}
		branch, ok := mountBranches[st.Key.Mount]
		if !ok {
			branch = disk.AddBranch(st.Key.Mount)
			mountBranches[st.Key.Mount] = branch
		}
		branch.AddNode(label)
	}
	return tree.String()
}

func seriesLeaf(key history.Key) string {
	if key.Resource == history.Memory {
		return "memory"
	}
	return key.Kind.String()
}

func renderStatsTable(stats []SeriesStats) (string, error) {
	data := pterm.TableData{
		{"SERIES", "SAMPLES", "SPAN (DAYS)", "RATE", "TREND", "HISTORY", "LAST SAMPLE"},
	}
	for _, st := range stats {
		data = append(data, []string{
			st.Key.String(),
			fmt.Sprintf("%d", st.Samples),
			alerts.FormatRate(st.SpanDays),
			rateCell(st),
			trendCell(st.Trend),
			Sparkline(st.Values, 12),
			lastSampleCell(st),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

func rateCell(st SeriesStats) string {
	if st.Samples == 0 {
		return mutedColor("-")
	}
	return alerts.FormatRate(st.Rate) + " " + alerts.SeriesUnits(st.Key)
}

func trendCell(trend float64) string {
	switch {
	case trend > 0.01:
		return risingColor("↑ " + alerts.FormatRate(trend))
	case trend < -0.01:
		return easingColor("↓ " + alerts.FormatRate(trend))
	default:
		return mutedColor("→")
	}
}

func lastSampleCell(st SeriesStats) string {
	if st.Samples == 0 {
		return mutedColor("never")
	}
	return humanize.Time(st.LastAt)
}

// renderRateChart draws the per-series growth rates as horizontal bars.
// Series without samples are left out; an all-empty store yields "".
func renderRateChart(stats []SeriesStats) (string, error) {
	bars := make(pterm.Bars, 0, len(stats))
	for _, st := range stats {
		if st.Samples == 0 {
			continue
		}
		value := int(st.Rate)
		// pterm bars are ints; negative growth reads poorly as a bar
		if value < 0 {
			value = 0
		}
		bars = append(bars, pterm.Bar{Label: st.Key.String(), Value: value})
	}
	if len(bars) == 0 {
		return "", nil
	}
	return pterm.DefaultBarChart.
		WithBars(bars).
		WithHorizontal(true).
		WithShowValue(true).
		Srender()
}
