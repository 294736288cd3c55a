// Package confidence summarizes retrieval scores into a single [0,1] value.
package confidence

import (
	"math"
	"strconv"
)

// Estimate returns the mean of scores clamped to [0,1] and rounded to two decimals.
// Exact half-cent ties round to even. An empty list yields 0.
func Estimate(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	var sum float64
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	if math.IsNaN(mean) {
		return 0
	}

	mean = math.Max(0, math.Min(1, mean))
	return round2(mean)
}

// round2 rounds the exact binary value of x to two decimals, ties to even.
func round2(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return math.RoundToEven(x*100) / 100
	}
	return r
}
