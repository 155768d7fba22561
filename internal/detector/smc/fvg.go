package smc

import (
	"fmt"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
)

func init() {
	detector.Register("smc_fvg", func(detector.Params) detector.Detector {
		return &FVG{}
	})
}

// FVG detects Fair Value Gaps: a two-candle imbalance where the current low
// opens clear above the previous high (bullish) or the current high prints
// clear below the previous low (bearish). The most recent gap in the window
// wins; confidence grows with gap size relative to the average range.
type FVG struct{}

func (d *FVG) ID() string { return "smc_fvg" }

func (d *FVG) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	if w.Len() < 2 {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}
	avgRange := w.AvgRange()
	if avgRange == 0 {
		return models.HoldVote(d.ID(), ts, "zero range"), nil
	}

	var (
		found   bool
		bullish bool
		gapLow  float64
		gapHigh float64
	)
	for i := 1; i < w.Len(); i++ {
		prev, cur := w.At(i-1), w.At(i)
		if cur.Low > prev.High {
			found, bullish = true, true
			gapLow, gapHigh = prev.High, cur.Low
		} else if cur.High < prev.Low {
			found, bullish = true, false
			gapLow, gapHigh = cur.High, prev.Low
		}
	}
	if !found {
		return models.HoldVote(d.ID(), ts, "no fair value gap"), nil
	}

	size := gapHigh - gapLow
	conf := clamp(0.4 + (size/avgRange)*0.4)
	dir := models.Buy
	kind := "bullish"
	tag := "SMC:FVG_BULL"
	if !bullish {
		dir = models.Sell
		kind = "bearish"
		tag = "SMC:FVG_BEAR"
	}
	return models.Vote{
		DetectorID: d.ID(),
		Direction:  dir,
		Confidence: conf,
		Reasons:    []string{fmt.Sprintf("%s FVG %.2f-%.2f", kind, gapLow, gapHigh)},
		Tags:       []string{"SMC:FVG", tag},
		Meta:       map[string]float64{"gap_low": gapLow, "gap_high": gapHigh, "gap_size": size},
		Timestamp:  ts,
	}, nil
}
