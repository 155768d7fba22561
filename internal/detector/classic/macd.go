package classic

import (
	"fmt"
	"math"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/internal/indicator"
)

func init() {
	detector.Register("classic_macd", func(p detector.Params) detector.Detector {
		return &MACD{
			Fast:   p.Int("fast", 12),
			Slow:   p.Int("slow", 26),
			Signal: p.Int("signal", 9),
		}
	})
}

// MACD votes with the side of the MACD line relative to its signal line,
// confidence scaled by the relative spread between the two.
type MACD struct {
	Fast   int
	Slow   int
	Signal int
}

func (d *MACD) ID() string { return "classic_macd" }

func (d *MACD) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	closes := w.Closes()
	if len(closes) < d.Slow+d.Signal {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	macd, sig, _ := indicator.MACD(closes, d.Fast, d.Slow, d.Signal)
	m := indicator.Last(macd)
	s := indicator.Last(sig)

	var conf float64
	if s != 0 {
		conf = clamp(math.Abs(m-s) / math.Abs(s))
	}

	if m > s {
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Buy,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("MACD above signal: %.4f > %.4f", m, s)},
			Tags:       []string{"CLASSIC:MACD", "CROSSOVER"},
			Meta:       map[string]float64{"macd": m, "signal": s},
			Timestamp:  ts,
		}, nil
	}
	if m < s {
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Sell,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("MACD below signal: %.4f < %.4f", m, s)},
			Tags:       []string{"CLASSIC:MACD", "CROSSOVER"},
			Meta:       map[string]float64{"macd": m, "signal": s},
			Timestamp:  ts,
		}, nil
	}
	return models.HoldVote(d.ID(), ts, "MACD neutral"), nil
}
