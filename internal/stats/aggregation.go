package stats

import "math"

// Median calculates the median value, ignoring NaNs.
// Returns NaN when no value remains.
func Median(values []float64) float64 {
	sorted := sortedFinite(values)

	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// CountValid returns the number of non-NaN values
func CountValid(values []float64) int {
	count := 0
	for _, v := range values {
		if !math.IsNaN(v) {
			count++
		}
	}
	return count
}
