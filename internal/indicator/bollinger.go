package indicator

import "math"

// Bollinger returns the final upper, middle and lower band values for a
// period-length SMA with stdDev standard deviations, and false when there is
// not enough data.
func Bollinger(closes []float64, period int, stdDev float64) (upper, middle, lower float64, ok bool) {
	if period <= 0 || len(closes) < period {
		return 0, 0, 0, false
	}
	tail := closes[len(closes)-period:]

	var sum float64
	for _, v := range tail {
		sum += v
	}
	middle = sum / float64(period)

	var variance float64
	for _, v := range tail {
		d := v - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))

	upper = middle + stdDev*sd
	lower = middle - stdDev*sd
	return upper, middle, lower, true
}

// BandWidth returns (upper-lower)/middle, the regime filter's squeeze gauge.
func BandWidth(closes []float64, period int, stdDev float64) (float64, bool) {
	u, m, l, ok := Bollinger(closes, period, stdDev)
	if !ok || m == 0 {
		return 0, false
	}
	return (u - l) / m, true
}
