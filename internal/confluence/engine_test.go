package confluence

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Conflux/internal/domain/models"
	"Conflux/internal/regime"
	"Conflux/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestEngine(t *testing.T, cfg Config, weights map[string]float64, rcfg regime.Config) *Engine {
	t.Helper()
	if weights == nil {
		weights = map[string]float64{}
	}
	return NewEngine(cfg, weights, regime.NewAnalyzer(rcfg), testLogger(t))
}

func vote(id string, dir models.Direction, conf float64) models.Vote {
	return models.Vote{DetectorID: id, Direction: dir, Confidence: conf}
}

func batchOf(votes ...models.Vote) models.VoteBatch {
	b := models.VoteBatch{
		Window: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Votes:  make(map[string]models.Vote, len(votes)),
	}
	for _, v := range votes {
		b.Votes[v.DetectorID] = v
	}
	return b
}

// regime context that passes the zero-floor default config
var openRegime = models.RegimeContext{Classification: models.Correction, TrendStrength: 20}

func TestAllModeRequiresUnanimity(t *testing.T) {
	e := newTestEngine(t, Config{Mode: models.ModeAll, HistorySize: 10}, nil, regime.Config{})

	dec := e.Decide("BTCUSDT", batchOf(
		vote("a", models.Buy, 0.8),
		vote("b", models.Buy, 0.6),
	), openRegime, 100)
	assert.Equal(t, models.Buy, dec.Direction)
	assert.InDelta(t, 0.7, dec.Confidence, 1e-9)

	dec = e.Decide("BTCUSDT", batchOf(
		vote("a", models.Buy, 0.8),
		vote("b", models.None, 0),
	), openRegime, 100)
	assert.Equal(t, models.None, dec.Direction)

	dec = e.Decide("BTCUSDT", batchOf(
		vote("a", models.Buy, 0.8),
		vote("b", models.Sell, 0.8),
	), openRegime, 100)
	assert.Equal(t, models.None, dec.Direction)
}

func TestMajorityModeCountsActiveVotesOnly(t *testing.T) {
	e := newTestEngine(t, Config{Mode: models.ModeMajority, HistorySize: 10}, nil, regime.Config{})

	dec := e.Decide("BTCUSDT", batchOf(
		vote("a", models.Buy, 0.9),
		vote("b", models.Buy, 0.7),
		vote("c", models.Sell, 0.9),
		vote("d", models.None, 0),
	), openRegime, 100)
	assert.Equal(t, models.Buy, dec.Direction)
	assert.InDelta(t, 0.8, dec.Confidence, 1e-9)
	assert.InDelta(t, 2.0/3.0, dec.Score, 1e-9)

	// 1-1 tie holds
	dec = e.Decide("BTCUSDT", batchOf(
		vote("a", models.Buy, 0.9),
		vote("c", models.Sell, 0.9),
	), openRegime, 100)
	assert.Equal(t, models.None, dec.Direction)
}

func TestAnyModePicksFirstActiveByID(t *testing.T) {
	e := newTestEngine(t, Config{Mode: models.ModeAny, HistorySize: 10}, nil, regime.Config{})

	dec := e.Decide("BTCUSDT", batchOf(
		vote("z_late", models.Buy, 0.9),
		vote("a_early", models.Sell, 0.4),
	), openRegime, 100)
	assert.Equal(t, models.Sell, dec.Direction)
	assert.InDelta(t, 0.4, dec.Confidence, 1e-9)
}

func TestWeightedModeScore(t *testing.T) {
	weights := map[string]float64{"a": 2, "b": 1}
	e := newTestEngine(t, Config{
		Mode:            models.ModeWeighted,
		BuyThreshold:    0.3,
		SellThreshold:   0.3,
		ConflictPenalty: 0.6,
		HistorySize:     10,
	}, weights, regime.Config{})

	dec := e.Decide("BTCUSDT", batchOf(
		vote("a", models.Buy, 0.8),
		vote("b", models.None, 0),
	), openRegime, 100)
	// score = (1*0.8*2) / (2+1)
	assert.InDelta(t, 1.6/3, dec.Score, 1e-9)
	assert.Equal(t, models.Buy, dec.Direction)
	assert.False(t, dec.ConflictPenalty)
}

func TestWeightedConflictPenaltyShrinksScore(t *testing.T) {
	cfg := Config{Mode: models.ModeWeighted, BuyThreshold: 0.1, SellThreshold: 0.1, ConflictPenalty: 0.6, HistorySize: 10}

	clean := newTestEngine(t, cfg, nil, regime.Config{}).Decide("BTCUSDT", batchOf(
		vote("a", models.Buy, 0.9),
	), openRegime, 100)
	conflicted := newTestEngine(t, cfg, nil, regime.Config{}).Decide("BTCUSDT", batchOf(
		vote("a", models.Buy, 0.9),
		vote("b", models.Sell, 0.2),
	), openRegime, 100)

	assert.True(t, conflicted.ConflictPenalty)
	assert.Less(t, math.Abs(conflicted.Score), math.Abs(clean.Score))
	// (0.9 - 0.2) / 2 * 0.6
	assert.InDelta(t, 0.35*0.6, conflicted.Score, 1e-9)
}

func TestWeightedRegimeRejection(t *testing.T) {
	e := newTestEngine(t, Config{
		Mode: models.ModeWeighted, BuyThreshold: 0.1, SellThreshold: 0.1,
		ConflictPenalty: 0.6, HistorySize: 10,
	}, nil, regime.Config{MinTrend: 25})

	weak := models.RegimeContext{TrendStrength: 10, Classification: models.Correction}
	dec := e.Decide("BTCUSDT", batchOf(vote("a", models.Buy, 0.9)), weak, 100)
	assert.True(t, dec.RejectedByRegime)
	assert.Equal(t, models.None, dec.Direction)
	assert.Contains(t, dec.Reasons, "trend strength below floor")
	// score survives rejection for observability
	assert.NotZero(t, dec.Score)
}

func TestWeightedDeterministicAcrossRuns(t *testing.T) {
	cfg := Config{Mode: models.ModeWeighted, BuyThreshold: 0.3, SellThreshold: 0.3, ConflictPenalty: 0.6, HistorySize: 10}
	b := batchOf(
		vote("a", models.Buy, 0.7),
		vote("b", models.Sell, 0.3),
		vote("c", models.Buy, 0.5),
		vote("d", models.None, 0),
	)
	first := newTestEngine(t, cfg, nil, regime.Config{}).Decide("BTCUSDT", b, openRegime, 100)
	for i := 0; i < 20; i++ {
		again := newTestEngine(t, cfg, nil, regime.Config{}).Decide("BTCUSDT", b, openRegime, 100)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.Direction, again.Direction)
	}
}

func TestStateChangeTracking(t *testing.T) {
	e := newTestEngine(t, Config{Mode: models.ModeAny, HistorySize: 10}, nil, regime.Config{})

	first := e.Decide("BTCUSDT", batchOf(vote("a", models.Buy, 0.9)), openRegime, 100)
	assert.True(t, first.StateChanged, "first decision always flags a change")

	repeat := e.Decide("BTCUSDT", batchOf(vote("a", models.Buy, 0.9)), openRegime, 101)
	assert.False(t, repeat.StateChanged)

	flip := e.Decide("BTCUSDT", batchOf(vote("a", models.Sell, 0.9)), openRegime, 102)
	assert.True(t, flip.StateChanged)
}

func TestHistoryIsBounded(t *testing.T) {
	e := newTestEngine(t, Config{Mode: models.ModeAny, HistorySize: 3}, nil, regime.Config{})
	for i := 0; i < 5; i++ {
		e.Decide("BTCUSDT", batchOf(vote("a", models.Buy, 0.9)), openRegime, float64(100+i))
	}
	h := e.History()
	require.Len(t, h, 3)
	assert.InDelta(t, 102, h[0].Price, 1e-9)
	assert.InDelta(t, 104, h[2].Price, 1e-9)

	last, ok := e.Last()
	require.True(t, ok)
	assert.InDelta(t, 104, last.Price, 1e-9)
}

func TestConfigValidateRejectsUnknownMode(t *testing.T) {
	err := Config{Mode: "SOMETIMES"}.Validate()
	require.Error(t, err)
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
