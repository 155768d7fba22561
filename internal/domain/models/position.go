package models

import "time"

// Side is the simulated account state.
type Side int

const (
	Flat Side = iota
	Long
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Position is the single open position of a simulated account.
// Mutated only by the simulator's fill logic.
type Position struct {
	Symbol      string
	Side        Side
	EntryPrice  float64
	Size        float64 // quote-currency notional
	StopPrice   float64
	TargetPrice float64
	OpenedAt    time.Time
	// EntryMaker marks a fill that rested at the next candle's open.
	EntryMaker bool
}

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStop     ExitReason = "STOP"
	ExitTarget   ExitReason = "TARGET"
	ExitReversal ExitReason = "REVERSAL"
)

// Trade is a closed position record. Immutable once created.
type Trade struct {
	Symbol     string
	Side       Side
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	OpenedAt   time.Time
	ClosedAt   time.Time
	ExitReason ExitReason
	EntryMaker bool
	GrossPnL   float64
	Fees       float64
	Slippage   float64
	NetPnL     float64
}

// CostModel holds fee and slippage rates applied to simulated fills.
// Slippage applies to taker (market) fills only.
type CostModel struct {
	MakerFeeRate float64
	TakerFeeRate float64
	SlippageRate float64
}
