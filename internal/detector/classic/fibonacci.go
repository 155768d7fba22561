package classic

import (
	"fmt"
	"math"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
)

func init() {
	detector.Register("classic_fibonacci", func(p detector.Params) detector.Detector {
		return &Fibonacci{
			Lookback:  p.Int("lookback", 50),
			Tolerance: p.Get("tolerance", 0.015),
		}
	})
}

// Fibonacci votes when price retraces into a fib level of the lookback swing.
// In an up-leg (swing low precedes swing high) a pullback to a retracement
// level is a BUY; in a down-leg the mirrored bounce is a SELL. The 0.618
// golden level carries the highest confidence.
type Fibonacci struct {
	Lookback  int
	Tolerance float64
}

var fibLevels = []struct {
	ratio float64
	conf  float64
}{
	{0.382, 0.55},
	{0.5, 0.6},
	{0.618, 0.7},
}

func (d *Fibonacci) ID() string { return "classic_fibonacci" }

func (d *Fibonacci) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	if w.Len() < d.Lookback {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	start := w.Len() - d.Lookback
	hiIdx, loIdx := start, start
	hi, lo := w.At(start).High, w.At(start).Low
	for i := start + 1; i < w.Len(); i++ {
		c := w.At(i)
		if c.High > hi {
			hi, hiIdx = c.High, i
		}
		if c.Low < lo {
			lo, loIdx = c.Low, i
		}
	}
	span := hi - lo
	if span <= 0 {
		return models.HoldVote(d.ID(), ts, "flat range"), nil
	}

	close := w.Last().Close
	upLeg := loIdx < hiIdx // most recent impulse was upward

	for _, lvl := range fibLevels {
		var level float64
		if upLeg {
			level = hi - span*lvl.ratio
		} else {
			level = lo + span*lvl.ratio
		}
		if math.Abs(close-level)/span > d.Tolerance {
			continue
		}
		dir := models.Buy
		if !upLeg {
			dir = models.Sell
		}
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  dir,
			Confidence: lvl.conf,
			Reasons:    []string{fmt.Sprintf("price at %.1f%% retracement (%.2f)", lvl.ratio*100, level)},
			Tags:       []string{"CLASSIC:FIB", "RETRACEMENT"},
			Meta:       map[string]float64{"level": level, "ratio": lvl.ratio, "swing_high": hi, "swing_low": lo},
			Timestamp:  ts,
		}, nil
	}
	return models.HoldVote(d.ID(), ts, "no fib level in reach"), nil
}
