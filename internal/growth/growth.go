// Package growth turns retained usage samples into daily growth rates.
// All functions are pure; callers pass plain timestamp to value maps.
package growth

import (
	"math"
	"sort"

	"github.com/VividCortex/ewma"
)

const secondsPerDay = 86400

// PlannedRate returns the budgeted daily growth that would exhaust total
// over timeframeDays, rounded to two decimals. Current usage is accepted
// for call-site symmetry with CurrentRate but the allowance depends only
// on capacity and timeframe.
func PlannedRate(current, total float64, timeframeDays int) float64 {
	_ = current
	return round2(total / float64(timeframeDays))
}

// CurrentRate fits value = a*timestamp + b over the samples by ordinary
// least squares and returns the slope scaled to units per day, rounded to
// two decimals. Fewer than two samples yield zero.
func CurrentRate(samples map[int64]float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	// Shift timestamps to the series minimum. The slope is invariant
	// under the shift and the sums stay far from float64 cancellation.
	var base int64
	first := true
	for ts := range samples {
		if first || ts < base {
			base = ts
			first = false
		}
	}

	var sumX, sumY, sumXY, sumXX float64
	for ts, v := range samples {
		x := float64(ts - base)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	n := float64(len(samples))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	return round2(slope * secondsPerDay)
}

// SmoothedRate reports an exponentially weighted average of the pairwise
// per-day rates between consecutive samples. It follows recent movement
// more closely than the least-squares fit and is used for display only,
// never for classification.
func SmoothedRate(samples map[int64]float64) float64 {
	if len(samples) < 2 {
		return 0
	}

	stamps := make([]int64, 0, len(samples))
	for ts := range samples {
		stamps = append(stamps, ts)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	var avg ewma.SimpleEWMA
	for i := 1; i < len(stamps); i++ {
		dt := float64(stamps[i] - stamps[i-1])
		rate := (samples[stamps[i]] - samples[stamps[i-1]]) / dt * secondsPerDay
		avg.Add(rate)
	}
	return round2(avg.Value())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
