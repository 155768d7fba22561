package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Conflux/internal/confluence"
	"Conflux/internal/detector"
	_ "Conflux/internal/detector/classic"
	_ "Conflux/internal/detector/smc"
	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	"Conflux/internal/evaluator"
	"Conflux/internal/regime"
	"Conflux/internal/simulator"
	"Conflux/pkg/logger"
)

type fixedHistory struct {
	candles []models.Candle
}

func (h *fixedHistory) FetchHistory(ctx context.Context, symbol string, tf repository.Timeframe, count int) ([]models.Candle, error) {
	return h.candles, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// syntheticCandles builds a deterministic series with trends and pullbacks
// so at least some detectors fire.
func syntheticCandles(n int) []models.Candle {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		drift := 0.8 * math.Sin(float64(i)/12)
		wave := 2.5 * math.Sin(float64(i)/40)
		open := price
		price = price + drift + wave*0.1
		high := math.Max(open, price) + 0.6
		low := math.Min(open, price) - 0.6
		out[i] = models.Candle{
			OpenTime: base.Add(time.Duration(i) * 5 * time.Minute),
			Symbol:   "BTCUSDT",
			Open:     open, High: high, Low: low, Close: price,
			Volume: 10, Closed: true,
		}
	}
	return out
}

func newBacktest(t *testing.T, candles []models.Candle) (*Backtest, *confluence.Engine) {
	t.Helper()
	log := testLogger(t)

	set, err := detector.Build(map[string]detector.Config{
		"classic_rsi":  {Enabled: true},
		"classic_macd": {Enabled: true},
		"smc_bos":      {Enabled: true, Weight: 1.5},
		"smc_fvg":      {Enabled: true, Weight: 1.5},
	})
	require.NoError(t, err)

	analyzer := regime.NewAnalyzer(regime.Config{})
	eval := evaluator.New(set, log, evaluator.WithDeadline(2*time.Second))
	engine := confluence.NewEngine(confluence.Config{
		Mode:            models.ModeWeighted,
		BuyThreshold:    0.1,
		SellThreshold:   0.1,
		ConflictPenalty: 0.6,
		HistorySize:     500,
	}, set.Weights, analyzer, log)
	sim := simulator.New(simulator.Config{
		InitialEquity:   10000,
		PositionSizePct: 0.02,
		StopATRMult:     1.5,
		TargetATRMult:   3.0,
		StopFirst:       true,
		TakerFeeRate:    0.001,
		SlippageRate:    0.0005,
	}, log)

	return NewBacktest("BTCUSDT", 120, &fixedHistory{candles: candles}, eval, analyzer, engine, sim, log), engine
}

func TestBacktestRunProducesReport(t *testing.T) {
	candles := syntheticCandles(300)
	bt, _ := newBacktest(t, candles)

	report, err := bt.Run(context.Background(), repository.TF5m, 300)
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", report.Symbol)
	assert.Equal(t, 300, report.Candles)
	assert.Equal(t, candles[0].OpenTime, report.From)
	assert.Equal(t, candles[299].OpenTime, report.To)
	// decisions start once the warmup window fills
	assert.Equal(t, 300-30+1, report.Decisions)
	assert.InDelta(t, 10000, report.Account.InitialEquity, 1e-9)
	assert.Equal(t, report.Account.TotalTrades, len(report.Trades))
}

func TestBacktestEmptyHistoryFails(t *testing.T) {
	bt, _ := newBacktest(t, nil)
	_, err := bt.Run(context.Background(), repository.TF5m, 100)
	require.Error(t, err)
}

func TestBacktestIsReproducible(t *testing.T) {
	candles := syntheticCandles(300)

	btA, engineA := newBacktest(t, candles)
	first, err := btA.Run(context.Background(), repository.TF5m, 300)
	require.NoError(t, err)
	btB, engineB := newBacktest(t, candles)
	second, err := btB.Run(context.Background(), repository.TF5m, 300)
	require.NoError(t, err)

	assert.Equal(t, first.Decisions, second.Decisions)
	assert.Equal(t, first.Actionable, second.Actionable)
	assert.Equal(t, first.Rejected, second.Rejected)
	assert.Equal(t, first.Account, second.Account)
	require.Equal(t, len(first.Trades), len(second.Trades))
	for i := range first.Trades {
		assert.Equal(t, first.Trades[i], second.Trades[i])
	}

	// the full decision sequence must match, not just the aggregates
	histA, histB := engineA.History(), engineB.History()
	require.Equal(t, len(histA), len(histB))
	for i := range histA {
		assert.Equal(t, histA[i], histB[i], "decision %d diverged", i)
	}
}

func TestBacktestCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bt, _ := newBacktest(t, syntheticCandles(300))
	_, err := bt.Run(ctx, repository.TF5m, 300)
	require.Error(t, err)
}
