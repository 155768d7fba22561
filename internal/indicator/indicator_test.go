package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, out, 5)
	assert.Zero(t, out[0])
	assert.Zero(t, out[1])
	assert.InDelta(t, 2, out[2], 1e-9)
	assert.InDelta(t, 3, out[3], 1e-9)
	assert.InDelta(t, 4, out[4], 1e-9)
}

func TestEMASeededWithSMA(t *testing.T) {
	out := EMA([]float64{1, 2, 3, 4, 5}, 3)
	// seed = SMA(1,2,3) = 2; k = 0.5
	assert.InDelta(t, 2, out[2], 1e-9)
	assert.InDelta(t, 3, out[3], 1e-9)
	assert.InDelta(t, 4, out[4], 1e-9)
}

func TestRSIExtremes(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	v, ok := RSI(up, 14)
	require.True(t, ok)
	assert.InDelta(t, 100, v, 1e-9)

	down := make([]float64, 15)
	for i := range down {
		down[i] = float64(100 - i)
	}
	v, ok = RSI(down, 14)
	require.True(t, ok)
	assert.InDelta(t, 0, v, 1e-9)

	_, ok = RSI(up[:10], 14)
	assert.False(t, ok)
}

func TestATRConstantRange(t *testing.T) {
	// every bar spans exactly 2 with no gaps, so ATR converges to 2
	n := 30
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i] = 101
		lows[i] = 99
		closes[i] = 100
	}
	atr, ok := ATR(highs, lows, closes, 14)
	require.True(t, ok)
	assert.InDelta(t, 2, atr, 1e-9)
}

func TestBollingerFlatSeries(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 50
	}
	u, m, l, ok := Bollinger(closes, 20, 2)
	require.True(t, ok)
	assert.InDelta(t, 50, u, 1e-9)
	assert.InDelta(t, 50, m, 1e-9)
	assert.InDelta(t, 50, l, 1e-9)

	bw, ok := BandWidth(closes, 20, 2)
	require.True(t, ok)
	assert.Zero(t, bw)
}

func TestStochasticK(t *testing.T) {
	highs := []float64{10, 10, 10, 10, 10}
	lows := []float64{0, 0, 0, 0, 0}
	closes := []float64{5, 5, 5, 5, 7.5}
	k, ok := StochasticK(highs, lows, closes, 5)
	require.True(t, ok)
	assert.InDelta(t, 75, k, 1e-9)

	// degenerate range
	k, ok = StochasticK([]float64{5, 5}, []float64{5, 5}, []float64{5, 5}, 2)
	require.True(t, ok)
	assert.InDelta(t, 50, k, 1e-9)
}

func TestWilliamsR(t *testing.T) {
	highs := []float64{10, 10, 10}
	lows := []float64{0, 0, 0}
	closes := []float64{5, 5, 10}
	wr, ok := WilliamsR(highs, lows, closes, 3)
	require.True(t, ok)
	assert.InDelta(t, 0, wr, 1e-9)

	closes[2] = 0
	wr, ok = WilliamsR(highs, lows, closes, 3)
	require.True(t, ok)
	assert.InDelta(t, -100, wr, 1e-9)
}

func TestMACDSignalRegion(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	macd, sig, hist := MACD(closes, 12, 26, 9)
	require.Len(t, macd, 60)
	require.Len(t, sig, 60)
	require.Len(t, hist, 60)
	// steadily rising series keeps fast EMA above slow EMA
	assert.Greater(t, Last(macd), 0.0)
	assert.InDelta(t, Last(macd)-Last(sig), Last(hist), 1e-9)
}

func TestADXTrendingVsFlat(t *testing.T) {
	n := 40
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + 2*float64(i)
		highs[i] = base + 1
		lows[i] = base - 1
		closes[i] = base
	}
	adx, plusDI, minusDI, ok := ADX(highs, lows, closes, 14)
	require.True(t, ok)
	assert.Greater(t, adx, 25.0)
	assert.Greater(t, plusDI, minusDI)

	_, _, _, ok = ADX(highs[:20], lows[:20], closes[:20], 14)
	assert.False(t, ok)
}
