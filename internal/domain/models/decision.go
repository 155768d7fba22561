package models

import "time"

// Classification buckets the market regime derived from one window.
type Classification string

const (
	Bullish    Classification = "BULLISH"
	Bearish    Classification = "BEARISH"
	Correction Classification = "CORRECTION"
	Unknown    Classification = "UNKNOWN"
)

// RegimeContext carries per-window regime features. Recomputed every cycle,
// no lifecycle beyond it.
type RegimeContext struct {
	TrendStrength  float64 // ADX-like, >= 0
	PlusDI         float64
	MinusDI        float64
	Volatility     float64 // ATR-like, >= 0
	BandWidth      float64 // Bollinger (upper-lower)/middle, >= 0
	Classification Classification
}

// ConfluenceMode selects how a VoteBatch is reduced to one decision.
type ConfluenceMode string

const (
	ModeAll      ConfluenceMode = "ALL"
	ModeMajority ConfluenceMode = "MAJORITY"
	ModeWeighted ConfluenceMode = "WEIGHTED"
	ModeAny      ConfluenceMode = "ANY"
)

// ValidMode reports whether m is a supported confluence mode.
func ValidMode(m ConfluenceMode) bool {
	switch m {
	case ModeAll, ModeMajority, ModeWeighted, ModeAny:
		return true
	}
	return false
}

// ConfluenceDecision is the single output of one evaluation cycle.
type ConfluenceDecision struct {
	Symbol           string
	Direction        Direction // BUY, SELL, or NONE meaning HOLD
	Score            float64   // signed, pre-threshold
	Confidence       float64
	Votes            []Vote // active votes only, detector-id order
	Reasons          []string
	RejectedByRegime bool
	ConflictPenalty  bool
	Regime           RegimeContext
	Price            float64   // close of the triggering candle
	Timestamp        time.Time // open time of the triggering candle
	StateChanged     bool
}

// Actionable reports whether the decision calls for an entry or reversal.
func (d ConfluenceDecision) Actionable() bool { return d.Direction != None }
