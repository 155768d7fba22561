package indicator

// MACD returns the MACD line, signal line and histogram series for the given
// close prices. Series positions before warmup hold zeros.
func MACD(closes []float64, fast, slow, signal int) (macd, sig, hist []float64) {
	macd = make([]float64, len(closes))
	sig = make([]float64, len(closes))
	hist = make([]float64, len(closes))
	if len(closes) < slow+signal {
		return
	}

	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	for i := slow - 1; i < len(closes); i++ {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	// Signal line is an EMA of the MACD line, computed on the valid region.
	valid := macd[slow-1:]
	sigValid := EMA(valid, signal)
	copy(sig[slow-1:], sigValid)

	for i := slow - 2 + signal; i < len(closes); i++ {
		hist[i] = macd[i] - sig[i]
	}
	return
}
