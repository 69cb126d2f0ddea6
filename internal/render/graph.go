package render

import (
	"fmt"
	"os"

	"github.com/guptarohit/asciigraph"
	"golang.org/x/term"

	"github.com/willibrandon/creep/internal/history"
)

// TerminalWidth returns the current terminal width, or 80 when stdout
// is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// GraphView plots one series as an ASCII chart of its retained samples
// in timestamp order. Read-only; nothing is added or saved.
func GraphView(store *history.Store, key history.Key, days, width int) (string, error) {
	samples, err := store.Query(key)
	if err != nil {
		return "", err
	}
	samples = clipToDays(samples, days)
	if len(samples) == 0 {
		return "", fmt.Errorf("no samples recorded for %s", key)
	}

	stamps := sortedStamps(samples)
	values := make([]float64, len(stamps))
	for i, ts := range stamps {
		values[i] = samples[ts]
	}

	if width <= 0 {
		width = 80
	}
	// Leave room for the y axis labels
	plotWidth := width - 12
	if plotWidth < 20 {
		plotWidth = 20
	}

	return asciigraph.Plot(values,
		asciigraph.Height(12),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(graphCaption(key, len(values))),
	), nil
}

func graphCaption(key history.Key, samples int) string {
	units := "MB"
	if key.Resource == history.Disk && key.Kind == history.Inode {
		units = "inodes"
	}
	if key.Resource == history.Memory {
		return fmt.Sprintf("memory usage, %s (%d samples)", units, samples)
	}
	return fmt.Sprintf("disk %s usage for %s, %s (%d samples)", key.Kind, key.Mount, units, samples)
}
