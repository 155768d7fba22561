package classic

import (
	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/internal/indicator"
)

func init() {
	detector.Register("classic_ema_cross", func(p detector.Params) detector.Detector {
		return &EMACross{
			Fast: p.Int("fast", 9),
			Slow: p.Int("slow", 21),
		}
	})
}

// EMACross votes on the bar where the fast EMA crosses the slow EMA.
type EMACross struct {
	Fast int
	Slow int
}

func (d *EMACross) ID() string { return "classic_ema_cross" }

func (d *EMACross) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	closes := w.Closes()
	if len(closes) < d.Slow+1 {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	fast := indicator.EMA(closes, d.Fast)
	slow := indicator.EMA(closes, d.Slow)
	n := len(closes)
	curFast, prevFast := fast[n-1], fast[n-2]
	curSlow, prevSlow := slow[n-1], slow[n-2]

	if prevFast <= prevSlow && curFast > curSlow {
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Buy,
			Confidence: 0.6,
			Reasons:    []string{"EMA bullish crossover"},
			Tags:       []string{"CLASSIC:EMA", "CROSSOVER"},
			Meta:       map[string]float64{"fast": curFast, "slow": curSlow},
			Timestamp:  ts,
		}, nil
	}
	if prevFast >= prevSlow && curFast < curSlow {
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Sell,
			Confidence: 0.6,
			Reasons:    []string{"EMA bearish crossover"},
			Tags:       []string{"CLASSIC:EMA", "CROSSOVER"},
			Meta:       map[string]float64{"fast": curFast, "slow": curSlow},
			Timestamp:  ts,
		}, nil
	}
	return models.HoldVote(d.ID(), ts, "no EMA crossover"), nil
}
