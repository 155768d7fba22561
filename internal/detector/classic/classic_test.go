package classic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
)

func windowFromCloses(closes []float64) *models.Window {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{
			OpenTime: base.Add(time.Duration(i) * 5 * time.Minute),
			Symbol:   "BTCUSDT",
			Open:     c,
			High:     c + 1,
			Low:      c - 1,
			Close:    c,
			Volume:   1,
			Closed:   true,
		}
	}
	return models.NewWindow(candles)
}

func TestRSIOversoldBuys(t *testing.T) {
	// steady decline drives Wilder RSI to 0
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 200 - float64(i)
	}
	d := &RSI{Period: 14, Oversold: 30, Overbought: 70}

	v, err := d.Evaluate(windowFromCloses(closes))
	require.NoError(t, err)
	assert.Equal(t, models.Buy, v.Direction)
	assert.Greater(t, v.Confidence, 0.5)
	assert.LessOrEqual(t, v.Confidence, 1.0)
	assert.Equal(t, "classic_rsi", v.DetectorID)
	assert.NotEmpty(t, v.Reasons)
}

func TestRSIOverboughtSells(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	d := &RSI{Period: 14, Oversold: 30, Overbought: 70}

	v, err := d.Evaluate(windowFromCloses(closes))
	require.NoError(t, err)
	assert.Equal(t, models.Sell, v.Direction)
}

func TestRSIInsufficientDataHolds(t *testing.T) {
	d := &RSI{Period: 14, Oversold: 30, Overbought: 70}
	v, err := d.Evaluate(windowFromCloses([]float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, models.None, v.Direction)
	assert.Zero(t, v.Confidence)
}

func TestParamsFallBackToDefaults(t *testing.T) {
	p := detector.Params{"period": 7}
	assert.Equal(t, 7, p.Int("period", 14))
	assert.Equal(t, 14, p.Int("missing", 14))
	assert.InDelta(t, 30, p.Get("oversold", 30), 1e-9)
}

func TestBuildSkipsUnknownAndDisabled(t *testing.T) {
	set, err := detector.Build(map[string]detector.Config{
		"classic_rsi":  {Enabled: true, Weight: 2},
		"classic_macd": {Enabled: false},
		"no_such_id":   {Enabled: true},
	})
	require.NoError(t, err)
	require.Len(t, set.Detectors, 1)
	assert.Equal(t, "classic_rsi", set.Detectors[0].ID())
	assert.InDelta(t, 2, set.Weights["classic_rsi"], 1e-9)
}

func TestBuildDefaultsZeroWeight(t *testing.T) {
	set, err := detector.Build(map[string]detector.Config{
		"classic_rsi": {Enabled: true},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, set.Weights["classic_rsi"], 1e-9)
}

func TestBuildRejectsNegativeWeight(t *testing.T) {
	_, err := detector.Build(map[string]detector.Config{
		"classic_rsi": {Enabled: true, Weight: -1},
	})
	require.Error(t, err)
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
