package indicator

import "math"

// TrueRange returns max(h-l, |h-prevClose|, |l-prevClose|).
func TrueRange(high, low, prevClose float64) float64 {
	hl := high - low
	hc := math.Abs(high - prevClose)
	lc := math.Abs(low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR returns the final Average True Range over the period using Wilder
// smoothing, and false when there is not enough data. Slices must be
// parallel and oldest first.
func ATR(highs, lows, closes []float64, period int) (float64, bool) {
	n := len(closes)
	if period <= 0 || n < period+1 || len(highs) != n || len(lows) != n {
		return 0, false
	}

	var atr float64
	for i := 1; i <= period; i++ {
		atr += TrueRange(highs[i], lows[i], closes[i-1])
	}
	atr /= float64(period)

	p := float64(period)
	for i := period + 1; i < n; i++ {
		tr := TrueRange(highs[i], lows[i], closes[i-1])
		atr = (atr*(p-1) + tr) / p
	}
	return atr, true
}
