package models

import "time"

// Window is an ordered, read-only view of the most recent candles handed to
// detectors for one evaluation cycle. Detectors must never mutate it; the
// ingestor builds a fresh snapshot per cycle so concurrent reads are safe.
type Window struct {
	candles []Candle
}

// NewWindow wraps candles without copying. The caller hands over ownership.
func NewWindow(candles []Candle) *Window {
	return &Window{candles: candles}
}

func (w *Window) Len() int { return len(w.candles) }

// At returns the i-th candle, oldest first.
func (w *Window) At(i int) Candle { return w.candles[i] }

// Last returns the most recent candle. Callers must check Len() > 0.
func (w *Window) Last() Candle { return w.candles[len(w.candles)-1] }

// EndTime is the open time of the most recent candle, zero when empty.
func (w *Window) EndTime() time.Time {
	if len(w.candles) == 0 {
		return time.Time{}
	}
	return w.candles[len(w.candles)-1].OpenTime
}

// Closes returns a copy of all close prices, oldest first.
func (w *Window) Closes() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = c.Close
	}
	return out
}

// Highs returns a copy of all high prices, oldest first.
func (w *Window) Highs() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = c.High
	}
	return out
}

// Lows returns a copy of all low prices, oldest first.
func (w *Window) Lows() []float64 {
	out := make([]float64, len(w.candles))
	for i, c := range w.candles {
		out[i] = c.Low
	}
	return out
}

// AvgRange returns the mean high-low range over the window, 0 when empty.
func (w *Window) AvgRange() float64 {
	if len(w.candles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range w.candles {
		sum += c.Range()
	}
	return sum / float64(len(w.candles))
}
