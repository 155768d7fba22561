package classic

import (
	"fmt"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/internal/indicator"
)

func init() {
	detector.Register("classic_adx", func(p detector.Params) detector.Detector {
		return &ADX{
			Period:   p.Int("period", 14),
			MinTrend: p.Get("min_trend", 25),
		}
	})
}

// ADX votes with the dominant DI when trend strength clears MinTrend.
type ADX struct {
	Period   int
	MinTrend float64
}

func (d *ADX) ID() string { return "classic_adx" }

func (d *ADX) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	adx, plusDI, minusDI, ok := indicator.ADX(w.Highs(), w.Lows(), w.Closes(), d.Period)
	if !ok {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	if adx > d.MinTrend {
		conf := clamp(adx / 50)
		meta := map[string]float64{"adx": adx, "plus_di": plusDI, "minus_di": minusDI}
		if plusDI > minusDI {
			return models.Vote{
				DetectorID: d.ID(),
				Direction:  models.Buy,
				Confidence: conf,
				Reasons:    []string{fmt.Sprintf("strong uptrend: ADX %.1f, +DI %.1f > -DI %.1f", adx, plusDI, minusDI)},
				Tags:       []string{"CLASSIC:ADX", "TREND"},
				Meta:       meta,
				Timestamp:  ts,
			}, nil
		}
		if minusDI > plusDI {
			return models.Vote{
				DetectorID: d.ID(),
				Direction:  models.Sell,
				Confidence: conf,
				Reasons:    []string{fmt.Sprintf("strong downtrend: ADX %.1f, -DI %.1f > +DI %.1f", adx, minusDI, plusDI)},
				Tags:       []string{"CLASSIC:ADX", "TREND"},
				Meta:       meta,
				Timestamp:  ts,
			}, nil
		}
	}
	return models.HoldVote(d.ID(), ts, "no strong trend"), nil
}
