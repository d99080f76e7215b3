// Package scoring holds the pure metric primitives every aggregation
// and selection builds on. All functions are deterministic and safe on
// empty input.
package scoring

import (
	"fmt"
	"math"
)

// WeightedAccuracy scales raw accuracy by a logarithmic confidence
// factor on sample size: accuracy * log10(total+1). A topic answered
// correctly 4 of 10 times outranks one answered 1 of 2, even though the
// raw rates say otherwise. Rounded to 4 decimals for reproducibility.
func WeightedAccuracy(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	acc := float64(correct) / float64(total)
	bound := math.Log10(float64(total) + 1)
	// Rounding half-up can push a perfect score past log10(total+1);
	// clamp so the weighted value never exceeds its ceiling.
	return math.Min(round4(acc*bound), bound)
}

// ImprovementRate averages period-over-period percentage deltas across
// a chronological series. Periods whose previous value is zero are
// skipped; fewer than two points, or all periods skipped, yields the
// neutral 0.
func ImprovementRate(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	var sum float64
	var periods int
	for i := 1; i < len(series); i++ {
		prev := series[i-1]
		if prev == 0 {
			continue
		}
		sum += (series[i] - prev) / prev * 100
		periods++
	}
	if periods == 0 {
		return 0
	}
	return round4(sum / float64(periods))
}

// ImprovementRateEndpoints is the display variant used on cumulative
// summaries: the signed percentage change between first and last
// observation, formatted as "+12.5%" / "-3.0%". Fewer than two points
// or a zero baseline reports the neutral "+0%".
func ImprovementRateEndpoints(series []float64) string {
	if len(series) < 2 || series[0] == 0 {
		return "+0%"
	}
	change := (series[len(series)-1] - series[0]) / series[0] * 100
	sign := "+"
	if change < 0 {
		sign = "-"
		change = -change
	}
	return fmt.Sprintf("%s%.1f%%", sign, change)
}

// ConsistencyScore is mean/(1+stddev), or the mean alone when the
// series does not vary. Note this conflates absolute level with
// variance: two topics with identical spread but different means rank
// differently. Kept as-is pending product sign-off.
func ConsistencyScore(accuracies []float64) float64 {
	if len(accuracies) == 0 {
		return 0
	}
	mean := Mean(accuracies)
	sd := StdDev(accuracies)
	if sd > 0 {
		return round4(mean / (1 + sd))
	}
	return round4(mean)
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, 0 for fewer than
// two values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
