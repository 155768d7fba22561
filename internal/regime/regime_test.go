package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"Conflux/internal/domain/models"
)

func trendingWindow(up bool) *models.Window {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	n := 60
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		var mid float64
		if up {
			mid = 100 + 2*float64(i)
		} else {
			mid = 300 - 2*float64(i)
		}
		candles[i] = models.Candle{
			OpenTime: base.Add(time.Duration(i) * 5 * time.Minute),
			Symbol:   "BTCUSDT",
			Open:     mid, High: mid + 1, Low: mid - 1, Close: mid,
			Volume: 1, Closed: true,
		}
	}
	return models.NewWindow(candles)
}

func TestAnalyzeClassifiesTrends(t *testing.T) {
	a := NewAnalyzer(Config{})

	ctx := a.Analyze(trendingWindow(true))
	assert.Equal(t, models.Bullish, ctx.Classification)
	assert.Greater(t, ctx.TrendStrength, 25.0)
	assert.Greater(t, ctx.Volatility, 0.0)

	ctx = a.Analyze(trendingWindow(false))
	assert.Equal(t, models.Bearish, ctx.Classification)
}

func TestAnalyzeShortWindowIsUnknown(t *testing.T) {
	a := NewAnalyzer(Config{})
	w := models.NewWindow([]models.Candle{{
		OpenTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Open:     100, High: 101, Low: 99, Close: 100, Volume: 1,
	}})

	ctx := a.Analyze(w)
	assert.Equal(t, models.Unknown, ctx.Classification)
	assert.Zero(t, ctx.TrendStrength)
}

func TestPassZeroFloorsAlwaysPass(t *testing.T) {
	a := NewAnalyzer(Config{})
	ok, reasons := a.Pass(models.RegimeContext{})
	assert.True(t, ok)
	assert.Empty(t, reasons)
}

func TestPassReportsEveryFailedFloor(t *testing.T) {
	a := NewAnalyzer(Config{MinTrend: 25, MinVolatility: 1, MinBandWidth: 0.01})
	ok, reasons := a.Pass(models.RegimeContext{
		TrendStrength: 10,
		Volatility:    0.5,
		BandWidth:     0.001,
	})
	assert.False(t, ok)
	assert.Len(t, reasons, 3)
}

func TestPassSingleFloor(t *testing.T) {
	a := NewAnalyzer(Config{MinTrend: 25})
	ok, reasons := a.Pass(models.RegimeContext{TrendStrength: 30})
	assert.True(t, ok)
	assert.Empty(t, reasons)

	ok, _ = a.Pass(models.RegimeContext{TrendStrength: 20})
	assert.False(t, ok)
}
