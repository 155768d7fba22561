package indicator

// StochasticK returns the final %K value (0..100) over the period, and false
// when there is not enough data.
func StochasticK(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || n < period || len(highs) != n || len(lows) != n {
		return 0, false
	}
	hh := HighestIn(highs, period)
	ll := LowestIn(lows, period)
	if hh == ll {
		return 50, true
	}
	return 100 * (closes[n-1] - ll) / (hh - ll), true
}

// WilliamsR returns the final Williams %R value (-100..0) over the period,
// and false when there is not enough data.
func WilliamsR(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || n < period || len(highs) != n || len(lows) != n {
		return 0, false
	}
	hh := HighestIn(highs, period)
	ll := LowestIn(lows, period)
	if hh == ll {
		return -50, true
	}
	return (hh - closes[n-1]) / (hh - ll) * -100, true
}
