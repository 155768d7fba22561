package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/pkg/logger"
)

type stubDetector struct {
	id    string
	vote  models.Vote
	err   error
	delay time.Duration
	panic bool
}

func (d *stubDetector) ID() string { return d.id }

func (d *stubDetector) Evaluate(w *models.Window) (models.Vote, error) {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.panic {
		panic("boom")
	}
	return d.vote, d.err
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testWindow() *models.Window {
	return models.NewWindow([]models.Candle{{
		OpenTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Symbol:   "BTCUSDT",
		Open:     100, High: 101, Low: 99, Close: 100,
		Volume: 1, Closed: true,
	}})
}

func setOf(detectors ...detector.Detector) *detector.Set {
	s := &detector.Set{Weights: map[string]float64{}}
	for _, d := range detectors {
		s.Detectors = append(s.Detectors, d)
		s.Weights[d.ID()] = 1
	}
	return s
}

func TestEvaluateCollectsAllVotes(t *testing.T) {
	set := setOf(
		&stubDetector{id: "a", vote: models.Vote{DetectorID: "a", Direction: models.Buy, Confidence: 0.8}},
		&stubDetector{id: "b", vote: models.Vote{DetectorID: "b", Direction: models.Sell, Confidence: 0.6}},
	)
	e := New(set, testLogger(t))

	batch := e.Evaluate(context.Background(), testWindow())

	require.Len(t, batch.Votes, 2)
	assert.Equal(t, models.Buy, batch.Votes["a"].Direction)
	assert.Equal(t, models.Sell, batch.Votes["b"].Direction)
	assert.Empty(t, batch.TimedOut)
	assert.Empty(t, batch.Errored)
	assert.Positive(t, batch.Elapsed)
}

func TestEvaluateDowngradesErrorsToHold(t *testing.T) {
	set := setOf(
		&stubDetector{id: "good", vote: models.Vote{DetectorID: "good", Direction: models.Buy, Confidence: 0.8}},
		&stubDetector{id: "bad", err: errors.New("no data")},
	)
	e := New(set, testLogger(t))

	batch := e.Evaluate(context.Background(), testWindow())

	require.Len(t, batch.Votes, 2)
	assert.Equal(t, models.None, batch.Votes["bad"].Direction)
	assert.Equal(t, []string{"bad"}, batch.Errored)
	assert.Equal(t, models.Buy, batch.Votes["good"].Direction)
}

func TestEvaluateRecoversPanics(t *testing.T) {
	set := setOf(&stubDetector{id: "p", panic: true})
	e := New(set, testLogger(t))

	batch := e.Evaluate(context.Background(), testWindow())

	require.Len(t, batch.Votes, 1)
	assert.Equal(t, models.None, batch.Votes["p"].Direction)
	assert.Equal(t, []string{"p"}, batch.Errored)
}

func TestEvaluateTimesOutSlowDetectors(t *testing.T) {
	set := setOf(
		&stubDetector{id: "fast", vote: models.Vote{DetectorID: "fast", Direction: models.Buy, Confidence: 0.8}},
		&stubDetector{id: "slow", delay: time.Second},
	)
	e := New(set, testLogger(t), WithDeadline(20*time.Millisecond))

	batch := e.Evaluate(context.Background(), testWindow())

	require.Len(t, batch.Votes, 2)
	assert.Equal(t, []string{"slow"}, batch.TimedOut)
	assert.Equal(t, models.None, batch.Votes["slow"].Direction)
	assert.Equal(t, models.Buy, batch.Votes["fast"].Direction)
}

func TestEvaluateBatchWindowTimestamp(t *testing.T) {
	set := setOf(&stubDetector{id: "a"})
	e := New(set, testLogger(t))

	w := testWindow()
	batch := e.Evaluate(context.Background(), w)
	assert.Equal(t, w.EndTime(), batch.Window)
}
