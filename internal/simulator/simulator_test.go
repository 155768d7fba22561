package simulator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Conflux/internal/domain/models"
	"Conflux/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

// zero-cost config so price math is exact in most tests
func testConfig() Config {
	return Config{
		InitialEquity:   10000,
		PositionSizePct: 0.02,
		StopATRMult:     1.5,
		TargetATRMult:   3.0,
		StopFirst:       true,
	}
}

func decision(dir models.Direction, price float64) models.ConfluenceDecision {
	return models.ConfluenceDecision{
		Symbol:    "BTCUSDT",
		Direction: dir,
		Price:     price,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func candle(o, h, l, c float64) models.Candle {
	return models.Candle{
		OpenTime: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		Symbol:   "BTCUSDT",
		Open:     o, High: h, Low: l, Close: c,
		Volume: 1, Closed: true,
	}
}

func TestLongEntryPlacesLevels(t *testing.T) {
	s := New(testConfig(), testLogger(t))

	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))

	state, pos := s.State()
	assert.Equal(t, models.Long, state)
	assert.InDelta(t, 100, pos.EntryPrice, 1e-9)
	assert.InDelta(t, 97, pos.StopPrice, 1e-9)    // 100 - 2*1.5
	assert.InDelta(t, 106, pos.TargetPrice, 1e-9) // 100 + 2*3.0
	assert.InDelta(t, 200, pos.Size, 1e-9)        // 10000 * 0.02
}

func TestLongTargetExit(t *testing.T) {
	s := New(testConfig(), testLogger(t))
	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))

	s.OnCandle(candle(101, 107, 100, 106))

	state, _ := s.State()
	assert.Equal(t, models.Flat, state)
	trades := s.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, models.ExitTarget, tr.ExitReason)
	assert.InDelta(t, 106, tr.ExitPrice, 1e-9)
	// 200 notional / 100 entry = 2 units, 6 per unit
	assert.InDelta(t, 12, tr.GrossPnL, 1e-9)
}

func TestLongStopExit(t *testing.T) {
	s := New(testConfig(), testLogger(t))
	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))

	s.OnCandle(candle(99, 99.5, 96, 98))

	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitStop, trades[0].ExitReason)
	assert.InDelta(t, -6, trades[0].GrossPnL, 1e-9)
}

func TestStopFirstWhenRangeCoversBoth(t *testing.T) {
	s := New(testConfig(), testLogger(t))
	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))

	s.OnCandle(candle(100, 110, 90, 100))

	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitStop, trades[0].ExitReason)
}

func TestShortStopFirstWhenRangeCoversBoth(t *testing.T) {
	cfg := testConfig()
	cfg.StopATRMult = 1
	cfg.TargetATRMult = 2
	s := New(cfg, testLogger(t))
	require.NoError(t, s.OnDecision(decision(models.Sell, 100), 5))

	_, pos := s.State()
	assert.InDelta(t, 105, pos.StopPrice, 1e-9)
	assert.InDelta(t, 90, pos.TargetPrice, 1e-9)

	// one candle sweeps through both levels; the stop wins for shorts too
	s.OnCandle(candle(100, 106, 89, 100))

	trades := s.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, models.ExitStop, tr.ExitReason)
	assert.InDelta(t, 105, tr.ExitPrice, 1e-9)
	assert.InDelta(t, -10, tr.GrossPnL, 1e-9) // 2 units, 5 against
}

func TestTargetFirstWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.StopFirst = false
	s := New(cfg, testLogger(t))
	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))

	s.OnCandle(candle(100, 110, 90, 100))

	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitTarget, trades[0].ExitReason)
}

func TestShortInvertsLevelsAndPnL(t *testing.T) {
	s := New(testConfig(), testLogger(t))
	require.NoError(t, s.OnDecision(decision(models.Sell, 100), 2))

	_, pos := s.State()
	assert.Equal(t, models.Short, pos.Side)
	assert.InDelta(t, 103, pos.StopPrice, 1e-9)
	assert.InDelta(t, 94, pos.TargetPrice, 1e-9)

	// falls to the target: short profits
	s.OnCandle(candle(99, 99, 93, 94))
	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitTarget, trades[0].ExitReason)
	assert.InDelta(t, 12, trades[0].GrossPnL, 1e-9)
}

func TestSameDirectionDecisionIgnored(t *testing.T) {
	s := New(testConfig(), testLogger(t))
	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))
	require.NoError(t, s.OnDecision(decision(models.Buy, 105), 2))

	_, pos := s.State()
	assert.InDelta(t, 100, pos.EntryPrice, 1e-9, "original entry kept")
	assert.Empty(t, s.Trades())
}

func TestReversalClosesThenReopens(t *testing.T) {
	s := New(testConfig(), testLogger(t))
	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))
	require.NoError(t, s.OnDecision(decision(models.Sell, 105), 2))

	trades := s.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitReversal, trades[0].ExitReason)
	assert.InDelta(t, 10, trades[0].GrossPnL, 1e-9) // 2 units * +5

	state, pos := s.State()
	assert.Equal(t, models.Short, state)
	assert.InDelta(t, 105, pos.EntryPrice, 1e-9)
}

func TestNonPositiveVolatilityDropsDecision(t *testing.T) {
	s := New(testConfig(), testLogger(t))
	err := s.OnDecision(decision(models.Buy, 100), 0)
	require.Error(t, err)
	var invErr *models.SimulationInvariantError
	assert.ErrorAs(t, err, &invErr)

	state, _ := s.State()
	assert.Equal(t, models.Flat, state)
}

func TestEntryNextOpenFillsAtNextCandleOpen(t *testing.T) {
	cfg := testConfig()
	cfg.EntryNextOpen = true
	s := New(cfg, testLogger(t))

	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))
	state, _ := s.State()
	assert.Equal(t, models.Flat, state, "entry queued, not filled")

	s.OnCandle(candle(102, 103, 101, 102.5))
	state, pos := s.State()
	assert.Equal(t, models.Long, state)
	assert.InDelta(t, 102, pos.EntryPrice, 1e-9)
}

func TestApplyCosts(t *testing.T) {
	tr := ApplyCosts(models.Trade{
		EntryPrice: 100,
		ExitPrice:  110,
		Size:       200,
		GrossPnL:   20,
	}, models.CostModel{TakerFeeRate: 0.001, SlippageRate: 0.0005})

	// entry notional 200, exit notional 220
	assert.InDelta(t, 0.42, tr.Fees, 1e-9)
	assert.InDelta(t, 0.21, tr.Slippage, 1e-9)
	assert.InDelta(t, 20-0.42-0.21, tr.NetPnL, 1e-9)
}

func TestApplyCostsMakerEntry(t *testing.T) {
	tr := ApplyCosts(models.Trade{
		EntryPrice: 100,
		ExitPrice:  110,
		Size:       200,
		EntryMaker: true,
		GrossPnL:   20,
	}, models.CostModel{MakerFeeRate: 0.0002, TakerFeeRate: 0.001, SlippageRate: 0.0005})

	// maker entry: 200*0.0002, taker exit: 220*0.001
	assert.InDelta(t, 0.04+0.22, tr.Fees, 1e-9)
	// no entry slippage, exit only
	assert.InDelta(t, 0.11, tr.Slippage, 1e-9)
	assert.InDelta(t, 20-0.26-0.11, tr.NetPnL, 1e-9)
}

func TestEntryNextOpenFillIsMaker(t *testing.T) {
	cfg := testConfig()
	cfg.EntryNextOpen = true
	cfg.MakerFeeRate = 0.0002
	cfg.TakerFeeRate = 0.001
	s := New(cfg, testLogger(t))

	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))
	s.OnCandle(candle(100, 101, 99.5, 100)) // fills at open 100

	_, pos := s.State()
	require.True(t, pos.EntryMaker)

	s.OnCandle(candle(105, 107, 104, 106)) // target 106 hit
	trades := s.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.True(t, tr.EntryMaker)
	// entry notional 200 at maker rate, exit notional 212 at taker rate
	assert.InDelta(t, 200*0.0002+212*0.001, tr.Fees, 1e-9)
}

func TestStatsAndDrawdown(t *testing.T) {
	s := New(testConfig(), testLogger(t))

	// winner: +12
	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))
	s.OnCandle(candle(101, 107, 100, 106))
	// loser: -6
	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))
	s.OnCandle(candle(99, 99.5, 96, 98))

	st := s.Stats()
	assert.Equal(t, 2, st.TotalTrades)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.InDelta(t, 0.5, st.WinRate, 1e-9)
	assert.InDelta(t, 10006, st.Equity, 1e-9)
	assert.InDelta(t, 6, st.MaxDrawdown, 1e-9)
}

func TestTradeHookObservesClosedTrades(t *testing.T) {
	var seen []models.Trade
	s := New(testConfig(), testLogger(t), WithTradeHook(func(tr models.Trade) {
		seen = append(seen, tr)
	}))

	require.NoError(t, s.OnDecision(decision(models.Buy, 100), 2))
	s.OnCandle(candle(101, 107, 100, 106))

	require.Len(t, seen, 1)
	assert.Equal(t, models.ExitTarget, seen[0].ExitReason)
}
