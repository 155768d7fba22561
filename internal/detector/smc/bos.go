// Package smc implements the Smart-Money-Concepts detector family: market
// structure breaks, order blocks, imbalances and liquidity sweeps. All swing
// bookkeeping is recomputed from the window each cycle; nothing persists
// across evaluations.
package smc

import (
	"fmt"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
)

func init() {
	detector.Register("smc_bos", func(p detector.Params) detector.Detector {
		return &BOS{MinDisplacement: p.Get("min_displacement", 0.001)}
	})
}

// BOS detects a Break of Structure: continuation once the close clears the
// last swing high (bullish) or swing low (bearish). Confidence scales with
// the displacement beyond the broken level relative to the swing range.
type BOS struct {
	MinDisplacement float64
}

func (d *BOS) ID() string { return "smc_bos" }

func (d *BOS) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	if w.Len() < 2 {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}

	swingHigh, swingLow := priorExtremes(w)
	priceRange := swingHigh - swingLow
	if priceRange == 0 {
		return models.HoldVote(d.ID(), ts, "zero range"), nil
	}
	close := w.Last().Close

	if close > swingHigh {
		disp := (close - swingHigh) / priceRange
		if disp >= d.MinDisplacement {
			return models.Vote{
				DetectorID: d.ID(),
				Direction:  models.Buy,
				Confidence: clamp(0.5 + disp*10),
				Reasons:    []string{fmt.Sprintf("bullish BOS: broke swing high %.2f, displacement %.3f", swingHigh, disp)},
				Tags:       []string{"SMC:BOS", "SMC:BOS_BULL"},
				Meta:       map[string]float64{"swing_high": swingHigh, "displacement": disp, "close": close},
				Timestamp:  ts,
			}, nil
		}
	}
	if close < swingLow {
		disp := (swingLow - close) / priceRange
		if disp >= d.MinDisplacement {
			return models.Vote{
				DetectorID: d.ID(),
				Direction:  models.Sell,
				Confidence: clamp(0.5 + disp*10),
				Reasons:    []string{fmt.Sprintf("bearish BOS: broke swing low %.2f, displacement %.3f", swingLow, disp)},
				Tags:       []string{"SMC:BOS", "SMC:BOS_BEAR"},
				Meta:       map[string]float64{"swing_low": swingLow, "displacement": disp, "close": close},
				Timestamp:  ts,
			}, nil
		}
	}
	return models.HoldVote(d.ID(), ts, "no structure break"), nil
}

// priorExtremes returns the highest high and lowest low of all candles
// except the most recent one.
func priorExtremes(w *models.Window) (high, low float64) {
	high, low = w.At(0).High, w.At(0).Low
	for i := 1; i < w.Len()-1; i++ {
		c := w.At(i)
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return
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
