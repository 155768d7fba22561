// Package evaluator fans one candle window out to every registered detector
// in parallel and collects the votes into a single batch per cycle.
package evaluator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"Conflux/internal/detector"
	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	"Conflux/pkg/logger"
)

// DefaultDeadline bounds one evaluation cycle. Detectors that miss it are
// recorded as timed out and contribute a neutral vote.
const DefaultDeadline = 200 * time.Millisecond

type Evaluator struct {
	set      *detector.Set
	deadline time.Duration
	logger   *logger.Logger
	metrics  repository.Metrics
}

type Option func(*Evaluator)

func WithDeadline(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.deadline = d
		}
	}
}

func WithMetrics(m repository.Metrics) Option {
	return func(e *Evaluator) { e.metrics = m }
}

func New(set *detector.Set, log *logger.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		set:      set,
		deadline: DefaultDeadline,
		logger:   log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type result struct {
	id   string
	vote models.Vote
	err  error
}

// Evaluate runs every detector against the window concurrently and returns
// a batch keyed by detector id. A detector that errors, panics or overruns
// the deadline is downgraded to a neutral vote so one bad detector never
// stalls the cycle. The batch always contains one vote per detector.
func (e *Evaluator) Evaluate(ctx context.Context, w *models.Window) models.VoteBatch {
	start := time.Now()
	cycleCtx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	ts := w.EndTime()
	batch := models.VoteBatch{
		Window: ts,
		Votes:  make(map[string]models.Vote, len(e.set.Detectors)),
	}

	results := make(chan result, len(e.set.Detectors))
	for _, d := range e.set.Detectors {
		go func(d detector.Detector) {
			defer func() {
				if r := recover(); r != nil {
					results <- result{id: d.ID(), err: fmt.Errorf("detector panic: %v", r)}
				}
			}()
			vote, err := d.Evaluate(w)
			results <- result{id: d.ID(), vote: vote, err: err}
		}(d)
	}

	pending := make(map[string]bool, len(e.set.Detectors))
	for _, d := range e.set.Detectors {
		pending[d.ID()] = true
	}

	for len(pending) > 0 {
		select {
		case r := <-results:
			delete(pending, r.id)
			if r.err != nil {
				batch.Errored = append(batch.Errored, r.id)
				batch.Votes[r.id] = models.HoldVote(r.id, ts, "detector error")
				if e.metrics != nil {
					e.metrics.RecordDetectorError(r.id)
				}
				e.logger.Warn("detector failed",
					logger.String("detector", r.id),
					logger.Error(r.err),
				)
				continue
			}
			batch.Votes[r.id] = r.vote
		case <-cycleCtx.Done():
			for id := range pending {
				batch.TimedOut = append(batch.TimedOut, id)
				batch.Votes[id] = models.HoldVote(id, ts, "deadline exceeded")
				if e.metrics != nil {
					e.metrics.RecordDetectorTimeout(id)
				}
			}
			e.logger.Warn("evaluation deadline exceeded",
				logger.Strings("detectors", batch.TimedOut),
				logger.Duration("deadline", e.deadline),
			)
			pending = nil
		}
	}

	sort.Strings(batch.TimedOut)
	sort.Strings(batch.Errored)
	batch.Elapsed = time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordCycleLatency(batch.Elapsed.Seconds())
	}
	return batch
}
