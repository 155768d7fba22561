package classic

import (
	"fmt"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/internal/indicator"
)

func init() {
	detector.Register("classic_bollinger", func(p detector.Params) detector.Detector {
		return &Bollinger{
			Period: p.Int("period", 20),
			StdDev: p.Get("std_dev", 2),
		}
	})
}

// Bollinger votes on closes outside the bands: below the lower band is a
// mean-reversion BUY, above the upper band a SELL.
type Bollinger struct {
	Period int
	StdDev float64
}

func (d *Bollinger) ID() string { return "classic_bollinger" }

func (d *Bollinger) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	closes := w.Closes()
	upper, _, lower, ok := indicator.Bollinger(closes, d.Period, d.StdDev)
	if !ok {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	price := closes[len(closes)-1]
	if price < lower && lower > 0 {
		conf := clamp((lower - price) / lower * 10)
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Buy,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("price below lower band: %.2f < %.2f", price, lower)},
			Tags:       []string{"CLASSIC:BB", "BREAKOUT"},
			Meta:       map[string]float64{"upper": upper, "lower": lower, "close": price},
			Timestamp:  ts,
		}, nil
	}
	if price > upper && upper > 0 {
		conf := clamp((price - upper) / upper * 10)
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Sell,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("price above upper band: %.2f > %.2f", price, upper)},
			Tags:       []string{"CLASSIC:BB", "BREAKOUT"},
			Meta:       map[string]float64{"upper": upper, "lower": lower, "close": price},
			Timestamp:  ts,
		}, nil
	}
	return models.HoldVote(d.ID(), ts, "price inside bands"), nil
}
