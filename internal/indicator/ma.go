// Package indicator provides windowed technical-analysis calculations used by
// the detectors and the regime filter. All functions are pure: they take
// price slices (oldest first) and return derived series or final values.
package indicator

// SMA returns the simple moving average series. Entries before the first
// full period are NaN-free zeros; callers should respect Warmup semantics
// by checking len(values) >= period first.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA returns the exponential moving average series, seeded with the SMA of
// the first period values.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	seed /= float64(period)
	out[period-1] = seed

	k := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// Last returns the final element of a series, or 0 for an empty one.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// HighestIn returns the maximum over the trailing n elements.
func HighestIn(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	max := values[start]
	for _, v := range values[start+1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// LowestIn returns the minimum over the trailing n elements.
func LowestIn(values []float64, n int) float64 {
	if len(values) == 0 {
		return 0
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	min := values[start]
	for _, v := range values[start+1:] {
		if v < min {
			min = v
		}
	}
	return min
}
