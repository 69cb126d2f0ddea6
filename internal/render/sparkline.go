// Package render turns stored history into terminal output for the
// history and graph subcommands. It never mutates the store.
package render

import "strings"

// Unicode block characters from lowest to highest
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as a single line of Unicode block characters,
// downsampled to fit width.
func Sparkline(data []float64, width int) string {
	if width <= 0 {
		width = 12
	}
	if len(data) == 0 {
		return strings.Repeat("─", width)
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	valueRange := maxVal - minVal
	if valueRange == 0 {
		valueRange = 1
	}

	resampled := resample(data, width)

	var sb strings.Builder
	for _, v := range resampled {
		// Normalize to the 8 block characters
		idx := int((v - minVal) / valueRange * 7)
		if idx > 7 {
			idx = 7
		}
		if idx < 0 {
			idx = 0
		}
		sb.WriteRune(sparkBlocks[idx])
	}
	return sb.String()
}

// resample shrinks data to at most targetWidth points by averaging
// buckets. Shorter series pass through unchanged.
func resample(data []float64, targetWidth int) []float64 {
	if len(data) <= targetWidth {
		return data
	}

	result := make([]float64, targetWidth)
	bucketSize := float64(len(data)) / float64(targetWidth)

	for i := 0; i < targetWidth; i++ {
		start := int(float64(i) * bucketSize)
		end := int(float64(i+1) * bucketSize)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			start = end - 1
		}
		if start < 0 {
			start = 0
		}

		sum := 0.0
		for j := start; j < end; j++ {
			sum += data[j]
		}
		result[i] = sum / float64(end-start)
	}
	return result
}
