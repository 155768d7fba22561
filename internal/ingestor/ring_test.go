package ingestor

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

func candleAt(ts time.Time, close float64) models.Candle {
	return models.Candle{
		OpenTime: ts,
		Symbol:   "BTCUSDT",
		Open:     close, High: close, Low: close, Close: close,
		Volume: 1,
	}
}

func TestRingDropsOutOfOrder(t *testing.T) {
	r := newRing(10)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, r.push(candleAt(t0, 1)))
	require.True(t, r.push(candleAt(t0.Add(5*time.Minute), 2)))
	assert.False(t, r.push(candleAt(t0, 3)), "older candle must be rejected")
	assert.Equal(t, 2, r.len())
}

func TestRingReplacesFormingCandle(t *testing.T) {
	r := newRing(10)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, r.push(candleAt(t0, 1)))
	require.True(t, r.push(candleAt(t0, 2)), "same open time updates in place")

	assert.Equal(t, 1, r.len())
	w := r.snapshot()
	assert.InDelta(t, 2, w.Last().Close, 1e-9)
}

func TestRingSlidesAtCapacity(t *testing.T) {
	r := newRing(3)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.True(t, r.push(candleAt(t0.Add(time.Duration(i)*5*time.Minute), float64(i))))
	}

	assert.Equal(t, 3, r.len())
	w := r.snapshot()
	assert.InDelta(t, 2, w.At(0).Close, 1e-9, "oldest two evicted")
	assert.InDelta(t, 4, w.Last().Close, 1e-9)
}

func TestRingResetKeepsTail(t *testing.T) {
	r := newRing(3)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	candles := make([]models.Candle, 5)
	for i := range candles {
		candles[i] = candleAt(t0.Add(time.Duration(i)*5*time.Minute), float64(i))
	}
	r.reset(candles)

	assert.Equal(t, 3, r.len())
	assert.InDelta(t, 2, r.snapshot().At(0).Close, 1e-9)
}

func TestRingSnapshotIsIsolated(t *testing.T) {
	r := newRing(10)
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.True(t, r.push(candleAt(t0, 1)))

	w := r.snapshot()
	require.True(t, r.push(candleAt(t0.Add(5*time.Minute), 2)))

	assert.Equal(t, 1, w.Len(), "snapshot unaffected by later pushes")
}

func TestBackoffBoundsAndGrowth(t *testing.T) {
	ing := New(Config{
		Symbol:        "BTCUSDT",
		WindowSize:    10,
		BackoffBase:   time.Second,
		BackoffMax:    30 * time.Second,
		BackoffFactor: 2,
	}, nil, nil, testLogger(t))

	for attempt := 1; attempt <= 10; attempt++ {
		d := ing.backoff(attempt)
		// pre-jitter: min(base*factor^(attempt-1), max); jitter is ±20%
		want := float64(time.Second)
		for n := 1; n < attempt; n++ {
			want *= 2
			if want >= float64(30*time.Second) {
				want = float64(30 * time.Second)
				break
			}
		}
		assert.GreaterOrEqual(t, float64(d), want*0.8-1, "attempt %d", attempt)
		assert.LessOrEqual(t, float64(d), want*1.2+1, "attempt %d", attempt)
	}
}
