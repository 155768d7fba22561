package smc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Conflux/internal/domain/models"
)

func windowOf(candles ...models.Candle) *models.Window {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i].OpenTime = base.Add(time.Duration(i) * 5 * time.Minute)
		candles[i].Symbol = "BTCUSDT"
		candles[i].Closed = true
		candles[i].Volume = 1
	}
	return models.NewWindow(candles)
}

func bar(o, h, l, c float64) models.Candle {
	return models.Candle{Open: o, High: h, Low: l, Close: c}
}

func TestBOSBullishBreak(t *testing.T) {
	// prior swing high 105, swing low 95; last closes at 107
	w := windowOf(
		bar(100, 105, 95, 101),
		bar(101, 104, 99, 102),
		bar(102, 103, 100, 101),
		bar(101, 108, 101, 107),
	)
	d := &BOS{MinDisplacement: 0.001}
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.Buy, v.Direction)
	// displacement = (107-105)/(105-95) = 0.2 -> confidence clamps at 1
	assert.InDelta(t, 1.0, v.Confidence, 1e-9)
	assert.InDelta(t, 0.2, v.Meta["displacement"], 1e-9)
}

func TestBOSBearishBreak(t *testing.T) {
	w := windowOf(
		bar(100, 105, 95, 101),
		bar(101, 104, 96, 99),
		bar(99, 102, 95, 97),
		bar(97, 97, 92, 93),
	)
	d := &BOS{MinDisplacement: 0.001}
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.Sell, v.Direction)
}

func TestBOSBelowMinDisplacementHolds(t *testing.T) {
	w := windowOf(
		bar(100, 105, 95, 101),
		bar(101, 104, 99, 102),
		bar(102, 105.001, 101, 105.0005),
	)
	d := &BOS{MinDisplacement: 0.01}
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.None, v.Direction)
}

func TestFVGBullishGap(t *testing.T) {
	// candle 2 opens clear above candle 1's high: gap 102..104
	w := windowOf(
		bar(100, 102, 99, 101),
		bar(104, 106, 104, 105),
		bar(105, 106, 104, 105.5),
	)
	d := &FVG{}
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.Buy, v.Direction)
	assert.InDelta(t, 102, v.Meta["gap_low"], 1e-9)
	assert.InDelta(t, 104, v.Meta["gap_high"], 1e-9)
	assert.Greater(t, v.Confidence, 0.4)
}

func TestFVGMostRecentGapWins(t *testing.T) {
	w := windowOf(
		bar(100, 102, 99, 101),
		bar(104, 106, 104, 105), // bullish gap
		bar(100, 101, 99, 100),  // bearish gap below prior low 104
	)
	d := &FVG{}
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.Sell, v.Direction)
}

func TestFVGNoGapHolds(t *testing.T) {
	w := windowOf(
		bar(100, 102, 99, 101),
		bar(101, 103, 100, 102),
	)
	d := &FVG{}
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.None, v.Direction)
}

func TestLiquiditySweepBelowLows(t *testing.T) {
	// low zone near 95 touched three times; last candle wicks to 93,
	// closes back above with a small body
	w := windowOf(
		bar(100, 102, 95, 101),
		bar(101, 103, 95.01, 100),
		bar(100, 102, 95.02, 101),
		bar(101, 102, 96, 100),
		bar(100, 100.5, 93, 100.2),
	)
	d := &LiquiditySweep{Tolerance: 0.001, MaxBodyRatio: 0.5}
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.Buy, v.Direction)
	assert.GreaterOrEqual(t, v.Confidence, 0.5)
	assert.InDelta(t, 95.01, v.Meta["zone"], 0.02)
}

func TestLiquiditySweepLargeBodyHolds(t *testing.T) {
	// same wick but a full-bodied candle is a breakdown, not a sweep
	w := windowOf(
		bar(100, 102, 95, 101),
		bar(101, 103, 95.01, 100),
		bar(100, 102, 95.02, 101),
		bar(101, 102, 96, 100),
		bar(100, 100, 93, 93.5),
	)
	d := &LiquiditySweep{Tolerance: 0.001, MaxBodyRatio: 0.5}
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.None, v.Direction)
}

func TestCHoCHRequiresProgressiveBreaks(t *testing.T) {
	d := &CHoCH{MinSwings: 2}
	// flat chop: no progressive structure to flip
	w := windowOf(
		bar(100, 101, 99, 100),
		bar(100, 101, 99, 100),
		bar(100, 101, 99, 100),
		bar(100, 101, 99, 100),
		bar(100, 101, 99, 100),
	)
	v, err := d.Evaluate(w)
	require.NoError(t, err)
	assert.Equal(t, models.None, v.Direction)
}
