// Package classic implements the technical-analysis detector family:
// oscillator and trend rules computed from derived indicators, with
// confidence scaled by distance from the trigger threshold.
package classic

import (
	"fmt"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/internal/indicator"
)

func init() {
	detector.Register("classic_rsi", func(p detector.Params) detector.Detector {
		return &RSI{
			Period:     p.Int("period", 14),
			Oversold:   p.Get("oversold", 30),
			Overbought: p.Get("overbought", 70),
		}
	})
}

// RSI votes BUY below the oversold line and SELL above the overbought line.
type RSI struct {
	Period     int
	Oversold   float64
	Overbought float64
}

func (d *RSI) ID() string { return "classic_rsi" }

func (d *RSI) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	rsi, ok := indicator.RSI(w.Closes(), d.Period)
	if !ok {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	switch {
	case rsi < d.Oversold:
		conf := clamp(0.5 + (d.Oversold-rsi)/60)
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Buy,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("RSI oversold: %.1f", rsi)},
			Tags:       []string{"CLASSIC:RSI", "OVERSOLD"},
			Meta:       map[string]float64{"rsi": rsi},
			Timestamp:  ts,
		}, nil
	case rsi > d.Overbought:
		conf := clamp(0.5 + (rsi-d.Overbought)/60)
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Sell,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("RSI overbought: %.1f", rsi)},
			Tags:       []string{"CLASSIC:RSI", "OVERBOUGHT"},
			Meta:       map[string]float64{"rsi": rsi},
			Timestamp:  ts,
		}, nil
	}
	return models.HoldVote(d.ID(), ts, "RSI neutral"), nil
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
