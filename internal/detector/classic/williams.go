package classic

import (
	"fmt"
	"math"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/internal/indicator"
)

func init() {
	detector.Register("classic_williams_r", func(p detector.Params) detector.Detector {
		return &WilliamsR{
			Period:     p.Int("period", 14),
			Oversold:   p.Get("oversold", -80),
			Overbought: p.Get("overbought", -20),
		}
	})
}

// WilliamsR votes BUY below the oversold level and SELL above the overbought
// level, confidence scaled by how deep the reading sits past the threshold.
type WilliamsR struct {
	Period     int
	Oversold   float64 // e.g. -80
	Overbought float64 // e.g. -20
}

func (d *WilliamsR) ID() string { return "classic_williams_r" }

func (d *WilliamsR) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	wr, ok := indicator.WilliamsR(w.Highs(), w.Lows(), w.Closes(), d.Period)
	if !ok {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	switch {
	case wr < d.Oversold:
		conf := clamp((math.Abs(wr) - math.Abs(d.Oversold)) / (100 - math.Abs(d.Oversold)))
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Buy,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("Williams %%R oversold: %.1f", wr)},
			Tags:       []string{"CLASSIC:WILLIAMS_R", "OVERSOLD"},
			Meta:       map[string]float64{"williams_r": wr},
			Timestamp:  ts,
		}, nil
	case wr > d.Overbought:
		conf := clamp((math.Abs(d.Overbought) - math.Abs(wr)) / math.Abs(d.Overbought))
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Sell,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("Williams %%R overbought: %.1f", wr)},
			Tags:       []string{"CLASSIC:WILLIAMS_R", "OVERBOUGHT"},
			Meta:       map[string]float64{"williams_r": wr},
			Timestamp:  ts,
		}, nil
	}
	return models.HoldVote(d.ID(), ts, "Williams %R neutral"), nil
}
