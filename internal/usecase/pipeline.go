// Package usecase wires the pipeline stages together: candle updates in,
// decisions and simulated trades out. The same cycle serves live paper
// trading and historical backtests.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"Conflux/internal/confluence"
	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	"Conflux/internal/evaluator"
	"Conflux/internal/ingestor"
	"Conflux/internal/regime"
	"Conflux/internal/simulator"
	"Conflux/pkg/logger"
)

// minWindow is the smallest window worth evaluating; below it every
// indicator abstains anyway.
const minWindow = 30

// Pipeline runs the live loop: the ingestor's debounced triggers drive one
// evaluation cycle each over the latest window snapshot.
type Pipeline struct {
	symbol  string
	tf      repository.Timeframe
	ing     *ingestor.Ingestor
	eval    *evaluator.Evaluator
	regimes *regime.Analyzer
	engine  *confluence.Engine
	sim     *simulator.Simulator
	bus     repository.EventBus
	store   repository.CandleSink
	metrics repository.Metrics
	logger  *logger.Logger

	started time.Time
	cycles  atomic.Int64
}

func NewPipeline(
	symbol string,
	tf repository.Timeframe,
	ing *ingestor.Ingestor,
	eval *evaluator.Evaluator,
	regimes *regime.Analyzer,
	engine *confluence.Engine,
	sim *simulator.Simulator,
	bus repository.EventBus,
	store repository.CandleSink,
	metrics repository.Metrics,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		symbol:  symbol,
		tf:      tf,
		ing:     ing,
		eval:    eval,
		regimes: regimes,
		engine:  engine,
		sim:     sim,
		bus:     bus,
		store:   store,
		metrics: metrics,
		logger:  log,
	}
}

// Run blocks until ctx is cancelled or the ingestor fails terminally.
func (p *Pipeline) Run(ctx context.Context) error {
	p.started = time.Now()

	ingErr := make(chan error, 1)
	go func() { ingErr <- p.ing.Start(ctx) }()

	p.logger.Info("pipeline started", logger.String("symbol", p.symbol))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-ingErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("ingestor: %w", err)
			}
			return err
		case <-p.ing.Reconnects():
			p.logger.Warn("stream reconnected, window re-bootstrapped",
				logger.String("symbol", p.symbol),
			)
		case <-p.ing.Triggers():
			p.Cycle(ctx, p.ing.Snapshot())
		}
	}
}

// Cycle runs one evaluation over the window: regime analysis, parallel
// detector votes, confluence decision, then the simulator. Exits are
// evaluated against the newest candle before any entry from this cycle's
// decision.
func (p *Pipeline) Cycle(ctx context.Context, w *models.Window) {
	if w.Len() < minWindow {
		return
	}
	p.cycles.Add(1)

	last := w.Last()
	if p.store != nil {
		// ReplacingMergeTree keyed on open time collapses re-stores of the
		// forming candle, so every snapshot is safe to persist.
		if err := p.store.StoreCandle(ctx, p.tf, last); err != nil {
			p.logger.Warn("candle store failed", logger.Error(err))
			if p.metrics != nil {
				p.metrics.RecordError("store_candle")
			}
		}
	}
	rc := p.regimes.Analyze(w)
	batch := p.eval.Evaluate(ctx, w)
	dec := p.engine.Decide(p.symbol, batch, rc, last.Close)

	if p.metrics != nil {
		p.metrics.RecordDecision(p.symbol, dec.Direction.String())
	}
	if dec.StateChanged {
		if err := p.bus.PublishDecision(ctx, dec); err != nil {
			p.logger.Error("decision publish failed", logger.Error(err))
			if p.metrics != nil {
				p.metrics.RecordError("publish_decision")
			}
		}
	}

	p.sim.OnCandle(last)
	if err := p.sim.OnDecision(dec, rc.Volatility); err != nil {
		var sie *models.SimulationInvariantError
		if errors.As(err, &sie) {
			p.logger.Warn("decision dropped", logger.Error(err))
		} else {
			p.logger.Error("simulator error", logger.Error(err))
		}
	}
}

// SessionStats summarizes the running session for the status API.
type SessionStats struct {
	Symbol       string               `json:"symbol"`
	StartedAt    time.Time            `json:"started_at"`
	Uptime       string               `json:"uptime"`
	Cycles       int64                `json:"cycles"`
	Stream       ingestor.StreamStats `json:"stream"`
	Decisions    map[string]int64     `json:"decisions"`
	StateChanges int64                `json:"state_changes"`
	Account      simulator.Stats      `json:"account"`
}

func (p *Pipeline) Session() SessionStats {
	counts, changes := p.engine.Counts()
	return SessionStats{
		Symbol:       p.symbol,
		StartedAt:    p.started,
		Uptime:       time.Since(p.started).Truncate(time.Second).String(),
		Cycles:       p.cycles.Load(),
		Stream:       p.ing.Stats(),
		Decisions:    counts,
		StateChanges: changes,
		Account:      p.sim.Stats(),
	}
}
