package smc

import (
	"fmt"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
)

func init() {
	detector.Register("smc_order_blocks", func(detector.Params) detector.Detector {
		return &OrderBlocks{}
	})
}

type orderBlock struct {
	index    int
	low      float64
	high     float64
	bullish  bool
	strength float64
}

// OrderBlocks marks the last opposite-colored candle before a structural
// break as institutional supply or demand. A bullish order block is the
// final bearish candle preceding an upside break; its zone strength is the
// candle's range measured against the window's average range.
type OrderBlocks struct{}

func (d *OrderBlocks) ID() string { return "smc_order_blocks" }

func (d *OrderBlocks) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	if w.Len() < 3 {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}
	avgRange := w.AvgRange()
	if avgRange == 0 {
		return models.HoldVote(d.ID(), ts, "zero range"), nil
	}

	var last *orderBlock
	runMax := w.At(0).High
	runMin := w.At(0).Low
	for i := 1; i < w.Len(); i++ {
		c := w.At(i)
		prev := w.At(i - 1)
		if c.Close > runMax && !prev.Bullish() {
			last = &orderBlock{
				index: i - 1, low: prev.Low, high: prev.High,
				bullish: true, strength: prev.Range(),
			}
		} else if c.Close < runMin && prev.Bullish() {
			last = &orderBlock{
				index: i - 1, low: prev.Low, high: prev.High,
				bullish: false, strength: prev.Range(),
			}
		}
		if c.High > runMax {
			runMax = c.High
		}
		if c.Low < runMin {
			runMin = c.Low
		}
	}
	if last == nil {
		return models.HoldVote(d.ID(), ts, "no order block"), nil
	}

	conf := clamp(0.5 + (last.strength/avgRange)*0.3)
	dir := models.Buy
	kind := "bullish"
	tag := "SMC:OB_BULL"
	if !last.bullish {
		dir = models.Sell
		kind = "bearish"
		tag = "SMC:OB_BEAR"
	}
	return models.Vote{
		DetectorID: d.ID(),
		Direction:  dir,
		Confidence: conf,
		Reasons:    []string{fmt.Sprintf("%s order block %.2f-%.2f", kind, last.low, last.high)},
		Tags:       []string{"SMC:ORDER_BLOCK", tag},
		Meta: map[string]float64{
			"zone_low": last.low, "zone_high": last.high,
			"strength": last.strength, "avg_range": avgRange,
		},
		Timestamp: ts,
	}, nil
}
