package smc

import (
	"fmt"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
)

func init() {
	detector.Register("smc_choch", func(p detector.Params) detector.Detector {
		return &CHoCH{MinSwings: p.Int("min_swings", 2)}
	})
}

// CHoCH detects a Change of Character: an established swing sequence (at
// least MinSwings progressive higher highs or lower lows) whose most recent
// structural break flips to the opposite side. Unlike BOS this is a reversal
// signal, so the vote direction follows the flip, not the prior trend.
type CHoCH struct {
	MinSwings int
}

func (d *CHoCH) ID() string { return "smc_choch" }

func (d *CHoCH) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	if w.Len() < d.MinSwings+2 {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	hhIdx, llIdx := swingBreaks(w)

	// Uptrend established, latest break is a lower low: bearish CHoCH.
	if len(hhIdx) >= d.MinSwings && len(llIdx) > 0 && llIdx[len(llIdx)-1] > hhIdx[len(hhIdx)-1] {
		conf := clamp(0.6 + 0.1*float64(len(hhIdx)))
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Sell,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("bearish CHoCH after %d higher highs", len(hhIdx))},
			Tags:       []string{"SMC:CHOCH", "SMC:CHOCH_BEAR"},
			Meta:       map[string]float64{"higher_highs": float64(len(hhIdx)), "lower_lows": float64(len(llIdx))},
			Timestamp:  ts,
		}, nil
	}
	// Downtrend established, latest break is a higher high: bullish CHoCH.
	if len(llIdx) >= d.MinSwings && len(hhIdx) > 0 && hhIdx[len(hhIdx)-1] > llIdx[len(llIdx)-1] {
		conf := clamp(0.6 + 0.1*float64(len(llIdx)))
		return models.Vote{
			DetectorID: d.ID(),
			Direction:  models.Buy,
			Confidence: conf,
			Reasons:    []string{fmt.Sprintf("bullish CHoCH after %d lower lows", len(llIdx))},
			Tags:       []string{"SMC:CHOCH", "SMC:CHOCH_BULL"},
			Meta:       map[string]float64{"higher_highs": float64(len(hhIdx)), "lower_lows": float64(len(llIdx))},
			Timestamp:  ts,
		}, nil
	}
	return models.HoldVote(d.ID(), ts, "no character change"), nil
}

// swingBreaks returns the indices at which a candle's high exceeds every
// prior high, and the indices at which a candle's low undercuts every prior
// low.
func swingBreaks(w *models.Window) (hhIdx, llIdx []int) {
	maxHigh := w.At(0).High
	minLow := w.At(0).Low
	for i := 1; i < w.Len(); i++ {
		c := w.At(i)
		if c.High > maxHigh {
			hhIdx = append(hhIdx, i)
			maxHigh = c.High
		}
		if c.Low < minLow {
			llIdx = append(llIdx, i)
			minLow = c.Low
		}
	}
	return
}
