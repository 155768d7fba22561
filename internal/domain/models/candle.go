package models

import "time"

// Candle is one OHLCV bar. Immutable once emitted by the ingestor.
type Candle struct {
	OpenTime time.Time
	Symbol   string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Closed   bool
}

// Valid reports whether the bar satisfies low <= {open,close} <= high.
func (c Candle) Valid() bool {
	if c.OpenTime.IsZero() {
		return false
	}
	if c.Low > c.Open || c.Low > c.Close || c.High < c.Open || c.High < c.Close {
		return false
	}
	return c.Low <= c.High && c.Volume >= 0
}

// Range returns high-low.
func (c Candle) Range() float64 { return c.High - c.Low }

// Body returns |close-open|.
func (c Candle) Body() float64 {
	b := c.Close - c.Open
	if b < 0 {
		return -b
	}
	return b
}

// Bullish reports whether the bar closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }
