package models

import (
	"errors"
	"fmt"
)

// ConnectionError wraps candle source failures. Transient errors are retried
// with backoff; terminal ones (bad symbol, auth) halt the ingestor.
type ConnectionError struct {
	Op       string
	Err      error
	Terminal bool
}

func (e *ConnectionError) Error() string {
	kind := "transient"
	if e.Terminal {
		kind = "terminal"
	}
	return fmt.Sprintf("connection (%s) %s: %v", kind, e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsTerminal reports whether err is a terminal connection failure.
func IsTerminal(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce) && ce.Terminal
}

// ConfigurationError is fatal at startup; the system refuses to run with
// an invalid mode, weight or threshold.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Msg)
}

// SimulationInvariantError marks a decision the simulator refused (e.g. an
// entry while already positioned). Logged, dropped, never fatal.
type SimulationInvariantError struct {
	State string
	Msg   string
}

func (e *SimulationInvariantError) Error() string {
	return fmt.Sprintf("simulation invariant (%s): %s", e.State, e.Msg)
}

// ErrOutOfOrder marks candles dropped by the ingestor's ordering guard.
var ErrOutOfOrder = errors.New("candle out of order")
