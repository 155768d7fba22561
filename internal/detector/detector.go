// Package detector defines the signal generator contract and the registry
// that builds the enabled set from configuration.
package detector

import (
	"Conflux/internal/domain/models"
)

// Detector is a pure function from a candle window to a vote. Implementations
// hold configuration only; all market state is derived from the window each
// cycle, which keeps concurrent evaluation trivial.
type Detector interface {
	ID() string
	Evaluate(w *models.Window) (models.Vote, error)
}

// Params carries per-detector tuning knobs from configuration. Missing keys
// fall back to each detector's defaults.
type Params map[string]float64

// Get returns the parameter value or def when absent.
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns the parameter as an int or def when absent or non-positive.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok && int(v) > 0 {
		return int(v)
	}
	return def
}
