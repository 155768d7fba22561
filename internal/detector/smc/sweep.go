package smc

import (
	"fmt"
	"time"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
)

func init() {
	detector.Register("smc_liquidity_sweep", func(p detector.Params) detector.Detector {
		return &LiquiditySweep{
			Tolerance:    p.Get("tolerance", 0.001),
			MaxBodyRatio: p.Get("max_body_ratio", 0.5),
		}
	})
}

// LiquiditySweep detects stop hunts: the last candle wicks through a
// liquidity zone (a price level the window has touched at least twice) and
// closes back on the other side with a small body. Sweeping resting sell
// stops below lows is bullish; sweeping buy stops above highs is bearish.
type LiquiditySweep struct {
	// Tolerance is the relative distance within which two touches count as
	// the same level.
	Tolerance    float64
	MaxBodyRatio float64
}

func (d *LiquiditySweep) ID() string { return "smc_liquidity_sweep" }

func (d *LiquiditySweep) Evaluate(w *models.Window) (models.Vote, error) {
	ts := w.EndTime()
	if w.Len() < 5 {
		return models.HoldVote(d.ID(), ts, "insufficient data"), nil
	}
	avgRange := w.AvgRange()
	last := w.Last()
	rng := last.Range()
	if avgRange == 0 || rng == 0 {
		return models.HoldVote(d.ID(), ts, "zero range"), nil
	}
	if last.Body()/rng > d.MaxBodyRatio {
		return models.HoldVote(d.ID(), ts, "body too large for sweep"), nil
	}

	highZones := d.zones(w, true)
	lowZones := d.zones(w, false)

	// Upper sweep: wick above a high zone, close back below it.
	for _, z := range highZones {
		if last.High > z && last.Close < z {
			wick := last.High - max(last.Open, last.Close)
			return d.vote(models.Sell, z, wick, avgRange, ts), nil
		}
	}
	// Lower sweep: wick below a low zone, close back above it.
	for _, z := range lowZones {
		if last.Low < z && last.Close > z {
			wick := min(last.Open, last.Close) - last.Low
			return d.vote(models.Buy, z, wick, avgRange, ts), nil
		}
	}
	return models.HoldVote(d.ID(), ts, "no liquidity sweep"), nil
}

func (d *LiquiditySweep) vote(dir models.Direction, zone, wick, avgRange float64, ts time.Time) models.Vote {
	kind, tag := "bullish", "SMC:SWEEP_BULL"
	if dir == models.Sell {
		kind, tag = "bearish", "SMC:SWEEP_BEAR"
	}
	return models.Vote{
		DetectorID: d.ID(),
		Direction:  dir,
		Confidence: clamp(0.5 + (wick/avgRange)*0.3),
		Reasons:    []string{fmt.Sprintf("%s liquidity sweep of %.2f", kind, zone)},
		Tags:       []string{"SMC:LIQUIDITY_SWEEP", tag},
		Meta:       map[string]float64{"zone": zone, "wick": wick, "avg_range": avgRange},
		Timestamp:  ts,
	}
}

// zones clusters the prior candles' highs (or lows) and keeps levels touched
// at least twice within the relative tolerance.
func (d *LiquiditySweep) zones(w *models.Window, highs bool) []float64 {
	levels := make([]float64, 0, w.Len()-1)
	for i := 0; i < w.Len()-1; i++ {
		if highs {
			levels = append(levels, w.At(i).High)
		} else {
			levels = append(levels, w.At(i).Low)
		}
	}
	var out []float64
	used := make([]bool, len(levels))
	for i, lv := range levels {
		if used[i] || lv == 0 {
			continue
		}
		sum, count := lv, 1
		for j := i + 1; j < len(levels); j++ {
			if used[j] {
				continue
			}
			if absFloat(levels[j]-lv)/lv <= d.Tolerance {
				sum += levels[j]
				count++
				used[j] = true
			}
		}
		if count >= 2 {
			out = append(out, sum/float64(count))
		}
	}
	return out
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
