package classic

import (
	"fmt"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/internal/indicator"
)

func init() {
	detector.Register("classic_stochastic", func(p detector.Params) detector.Detector {
		return &Stochastic{
			Period:     p.Int("period", 14),
			Oversold:   p.Get("oversold", 20),
			Overbought: p.Get("overbought", 80),
		}
	})
}

// Stochastic votes BUY/SELL on %K extremes.
type Stochastic struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func (d *Stochastic) ID() string { return "classic_stochastic" }

func (d *Stochastic) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	k, ok := indicator.StochasticK(w.Highs(), w.Lows(), w.Closes(), d.Period)
	if !ok {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	switch {
	case k < d.Oversold:
		conf := clamp((d.Oversold - k) / d.Oversold)
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Buy,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("stochastic oversold: %.1f", k)},
			Tags:       []string{"CLASSIC:STOCH", "OVERSOLD"},
			Meta:       map[string]float64{"stoch_k": k},
			Timestamp:  ts,
		}, nil
	case k > d.Overbought:
		conf := clamp((k - d.Overbought) / (100 - d.Overbought))
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Sell,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("stochastic overbought: %.1f", k)},
			Tags:       []string{"CLASSIC:STOCH", "OVERBOUGHT"},
			Meta:       map[string]float64{"stoch_k": k},
			Timestamp:  ts,
		}, nil
	}
	return models.HoldVote(d.ID(), ts, "stochastic neutral"), nil
}
