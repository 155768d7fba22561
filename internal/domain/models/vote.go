package models

import "time"

// Direction is a detector's view of the next move.
type Direction int

const (
	None Direction = 0
	Buy  Direction = 1
	Sell Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Sign returns +1 for BUY, -1 for SELL, 0 for NONE.
func (d Direction) Sign() float64 { return float64(d) }

// Vote is one detector's verdict on one window. Immutable; created by the
// detector, consumed once by the confluence engine.
type Vote struct {
	DetectorID string
	Direction  Direction
	Confidence float64 // [0,1]
	Reasons    []string
	Tags       []string
	Meta       map[string]float64
	Timestamp  time.Time // open time of the last candle in the window
}

// HoldVote builds the neutral vote used for errors, timeouts and quiet markets.
func HoldVote(detectorID string, ts time.Time, reason string) Vote {
	return Vote{
		DetectorID: detectorID,
		Direction:  None,
		Confidence: 0,
		Reasons:    []string{reason},
		Timestamp:  ts,
	}
}

// VoteBatch is the unordered result of one evaluation cycle, keyed by detector id.
type VoteBatch struct {
	Window   time.Time // open time of the last candle evaluated
	Votes    map[string]Vote
	Elapsed  time.Duration
	TimedOut []string // detectors that missed the cycle deadline
	Errored  []string // detectors that returned an error
}

// Counts returns the number of BUY, SELL and NONE votes.
func (b VoteBatch) Counts() (buy, sell, none int) {
	for _, v := range b.Votes {
		switch v.Direction {
		case Buy:
			buy++
		case Sell:
			sell++
		default:
			none++
		}
	}
	return
}
