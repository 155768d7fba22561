package indicator

import "math"

// ADX returns Wilder's Average Directional Index together with the final
// +DI/-DI values. Needs 2*period+1 candles before ok turns true.
func ADX(highs, lows, closes []float64, period int) (adx, plusDI, minusDI float64, ok bool) {
	n := len(closes)
	if period <= 0 || n < 2*period+1 || len(highs) != n || len(lows) != n {
		return 0, 0, 0, false
	}

	// Seed Wilder-smoothed TR/+DM/-DM with simple averages of the first period.
	var tr14, pdm14, mdm14 float64
	for i := 1; i <= period; i++ {
		tr, pdm, mdm := dmSample(highs, lows, closes, i)
		tr14 += tr
		pdm14 += pdm
		mdm14 += mdm
	}
	p := float64(period)
	tr14 /= p
	pdm14 /= p
	mdm14 /= p

	var dxSum float64
	dxCount := 0

	for i := period + 1; i < n; i++ {
		tr, pdm, mdm := dmSample(highs, lows, closes, i)
		tr14 = (tr14*(p-1) + tr) / p
		pdm14 = (pdm14*(p-1) + pdm) / p
		mdm14 = (mdm14*(p-1) + mdm) / p

		if tr14 == 0 {
			continue
		}
		plusDI = 100 * pdm14 / tr14
		minusDI = 100 * mdm14 / tr14
		den := plusDI + minusDI
		if den == 0 {
			continue
		}
		dx := 100 * math.Abs(plusDI-minusDI) / den

		if dxCount < period {
			dxSum += dx
			dxCount++
			if dxCount == period {
				adx = dxSum / p
			}
			continue
		}
		adx = (adx*(p-1) + dx) / p
	}

	return adx, plusDI, minusDI, dxCount >= period
}

func dmSample(highs, lows, closes []float64, i int) (tr, pdm, mdm float64) {
	up := highs[i] - highs[i-1]
	down := lows[i-1] - lows[i]
	if up > down && up > 0 {
		pdm = up
	}
	if down > up && down > 0 {
		mdm = down
	}
	tr = TrueRange(highs[i], lows[i], closes[i-1])
	return
}
