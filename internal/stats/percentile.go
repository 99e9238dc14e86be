package stats

import (
	"math"
	"sort"
)

// Percentile calculates the p-th percentile (0-100)
// Uses linear interpolation between closest ranks
func Percentile(values []float64, p float64) float64 {
	return Quantile(values, p/100.0)
}

// Quantile calculates the q-th quantile (0-1) with linear interpolation
// between closest ranks (h = (n-1)q). NaN values are ignored; NaN is
// returned when no value remains.
func Quantile(values []float64, q float64) float64 {
	return Quantiles(values, q)[0]
}

// Quantiles calculates multiple quantiles at once, sorting only once.
func Quantiles(values []float64, qs ...float64) []float64 {
	sorted := sortedFinite(values)

	results := make([]float64, len(qs))
	for i, q := range qs {
		results[i] = quantileSorted(sorted, q)
	}
	return results
}

// quantileSorted expects NaN-free ascending input.
func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}

	n := float64(len(sorted))
	index := q * (n - 1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))

	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return lerp(sorted[lower], sorted[upper], weight)
}

// lerp interpolates from whichever end is closer, which keeps results
// bit-identical with numpy's linear method.
func lerp(a, b, t float64) float64 {
	diff := b - a
	if t >= 0.5 {
		return b - diff*(1-t)
	}
	return a + diff*t
}

// sortedFinite returns an ascending copy of values without NaNs.
// Infinities are kept.
func sortedFinite(values []float64) []float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	sort.Float64s(sorted)
	return sorted
}
