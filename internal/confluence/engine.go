// Package confluence reduces a batch of detector votes plus regime context
// into one trading decision per window.
package confluence

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"Conflux/internal/domain/models"
	"Conflux/internal/regime"
	"Conflux/pkg/logger"
)

// Config controls decision aggregation. Validated at startup; an invalid
// mode or threshold refuses to start.
type Config struct {
	Mode            models.ConfluenceMode `yaml:"mode" default:"WEIGHTED"`
	BuyThreshold    float64               `yaml:"buy_threshold" default:"0.3" validate:"gte=0"`
	SellThreshold   float64               `yaml:"sell_threshold" default:"0.3" validate:"gte=0"`
	ConflictPenalty float64               `yaml:"conflict_penalty" default:"0.6" validate:"gt=0,lte=1"`
	HistorySize     int                   `yaml:"history_size" default:"100" validate:"gt=0"`
}

func (c Config) Validate() error {
	if !models.ValidMode(c.Mode) {
		return &models.ConfigurationError{Field: "confluence.mode", Msg: fmt.Sprintf("unknown mode %q", c.Mode)}
	}
	return nil
}

// Engine is the confluence aggregator. It keeps the previous direction so
// decisions can flag state changes, and a bounded in-memory decision
// history. Safe for one producer plus concurrent readers.
type Engine struct {
	cfg      Config
	weights  map[string]float64
	analyzer *regime.Analyzer
	logger   *logger.Logger

	mu       sync.RWMutex
	prevDir  models.Direction
	havePrev bool
	history  []models.ConfluenceDecision
	counts   map[string]int64
	changes  int64
}

func NewEngine(cfg Config, weights map[string]float64, analyzer *regime.Analyzer, log *logger.Logger) *Engine {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	return &Engine{
		cfg:      cfg,
		weights:  weights,
		analyzer: analyzer,
		logger:   log,
		history:  make([]models.ConfluenceDecision, 0, cfg.HistorySize),
		counts:   make(map[string]int64),
	}
}

// Decide reduces the batch under the configured mode. Only WEIGHTED applies
// the conflict penalty and regime filter; the other modes are plain
// reductions of the same batch. Votes are always visited in detector-id
// order so the outcome depends on the batch content, never on scheduling.
func (e *Engine) Decide(symbol string, batch models.VoteBatch, rc models.RegimeContext, price float64) models.ConfluenceDecision {
	dec := models.ConfluenceDecision{
		Symbol:    symbol,
		Direction: models.None,
		Regime:    rc,
		Price:     price,
		Timestamp: batch.Window,
	}

	ids := make([]string, 0, len(batch.Votes))
	for id := range batch.Votes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	switch e.cfg.Mode {
	case models.ModeAll:
		e.decideAll(&dec, ids, batch)
	case models.ModeMajority:
		e.decideMajority(&dec, ids, batch)
	case models.ModeAny:
		e.decideAny(&dec, ids, batch)
	default:
		e.decideWeighted(&dec, ids, batch)
	}

	e.record(&dec)
	return dec
}

func (e *Engine) decideAll(dec *models.ConfluenceDecision, ids []string, batch models.VoteBatch) {
	var dir models.Direction
	for _, id := range ids {
		v := batch.Votes[id]
		if v.Direction == models.None {
			dec.Reasons = append(dec.Reasons, "not unanimous: "+id+" abstained")
			return
		}
		if dir == models.None {
			dir = v.Direction
		} else if v.Direction != dir {
			dec.Reasons = append(dec.Reasons, "not unanimous: mixed directions")
			return
		}
		dec.Votes = append(dec.Votes, v)
		dec.Confidence += v.Confidence
	}
	if dir == models.None {
		return
	}
	dec.Direction = dir
	dec.Confidence /= float64(len(dec.Votes))
	dec.Score = dir.Sign() * dec.Confidence
	dec.Reasons = append(dec.Reasons, fmt.Sprintf("unanimous %s across %d detectors", dir, len(dec.Votes)))
}

func (e *Engine) decideMajority(dec *models.ConfluenceDecision, ids []string, batch models.VoteBatch) {
	var buys, sells int
	for _, id := range ids {
		v := batch.Votes[id]
		switch v.Direction {
		case models.Buy:
			buys++
			dec.Votes = append(dec.Votes, v)
		case models.Sell:
			sells++
			dec.Votes = append(dec.Votes, v)
		}
	}
	active := buys + sells
	if active == 0 {
		dec.Reasons = append(dec.Reasons, "no active votes")
		return
	}
	switch {
	case buys*2 > active:
		dec.Direction = models.Buy
	case sells*2 > active:
		dec.Direction = models.Sell
	default:
		dec.Reasons = append(dec.Reasons, fmt.Sprintf("no majority: %d buy / %d sell", buys, sells))
		return
	}
	var sum float64
	n := 0
	for _, v := range dec.Votes {
		if v.Direction == dec.Direction {
			sum += v.Confidence
			n++
		}
	}
	dec.Confidence = sum / float64(n)
	dec.Score = dec.Direction.Sign() * float64(n) / float64(active)
	dec.Reasons = append(dec.Reasons, fmt.Sprintf("majority %s: %d of %d active votes", dec.Direction, n, active))
}

func (e *Engine) decideAny(dec *models.ConfluenceDecision, ids []string, batch models.VoteBatch) {
	for _, id := range ids {
		v := batch.Votes[id]
		if v.Direction == models.None {
			continue
		}
		dec.Direction = v.Direction
		dec.Confidence = v.Confidence
		dec.Score = v.Direction.Sign() * v.Confidence
		dec.Votes = append(dec.Votes, v)
		dec.Reasons = append(dec.Reasons, "first active vote: "+id)
		return
	}
	dec.Reasons = append(dec.Reasons, "no active votes")
}

func (e *Engine) decideWeighted(dec *models.ConfluenceDecision, ids []string, batch models.VoteBatch) {
	var score, totalWeight float64
	var hasBuy, hasSell bool
	for _, id := range ids {
		v := batch.Votes[id]
		w := e.weight(id)
		totalWeight += w
		if v.Direction == models.None {
			continue
		}
		score += v.Direction.Sign() * v.Confidence * w
		dec.Votes = append(dec.Votes, v)
		switch v.Direction {
		case models.Buy:
			hasBuy = true
		case models.Sell:
			hasSell = true
		}
	}
	if totalWeight > 0 {
		score /= totalWeight
	}

	if hasBuy && hasSell {
		dec.ConflictPenalty = true
		score *= e.cfg.ConflictPenalty
		dec.Reasons = append(dec.Reasons, "conflict penalty applied")
	}
	dec.Score = score

	if pass, why := e.analyzer.Pass(dec.Regime); !pass {
		dec.RejectedByRegime = true
		dec.Direction = models.None
		dec.Reasons = append(dec.Reasons, why...)
		return
	}

	switch {
	case score > e.cfg.BuyThreshold:
		dec.Direction = models.Buy
	case score < -e.cfg.SellThreshold:
		dec.Direction = models.Sell
	default:
		dec.Direction = models.None
	}
	dec.Confidence = math.Abs(score)
	dec.Reasons = append(dec.Reasons, fmt.Sprintf("weighted score %.4f (%d active votes)", score, len(dec.Votes)))
}

func (e *Engine) weight(id string) float64 {
	if w, ok := e.weights[id]; ok && w > 0 {
		return w
	}
	return 1.0
}

func (e *Engine) record(dec *models.ConfluenceDecision) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dec.StateChanged = !e.havePrev || dec.Direction != e.prevDir
	e.prevDir = dec.Direction
	e.havePrev = true
	e.counts[dec.Direction.String()]++
	if dec.StateChanged {
		e.changes++
	}

	e.history = append(e.history, *dec)
	if len(e.history) > e.cfg.HistorySize {
		e.history = e.history[1:]
	}

	if dec.StateChanged {
		e.logger.Info("decision state changed",
			logger.String("symbol", dec.Symbol),
			logger.String("direction", dec.Direction.String()),
			logger.Any("score", dec.Score),
			logger.Bool("rejected_by_regime", dec.RejectedByRegime),
		)
	}
}

// Counts reports how many decisions landed on each direction plus the
// number of state changes, for the session stats endpoint.
func (e *Engine) Counts() (map[string]int64, int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]int64, len(e.counts))
	for k, v := range e.counts {
		out[k] = v
	}
	return out, e.changes
}

// History returns a copy of the retained decisions, oldest first.
func (e *Engine) History() []models.ConfluenceDecision {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]models.ConfluenceDecision, len(e.history))
	copy(out, e.history)
	return out
}

// Last returns the most recent decision, if any.
func (e *Engine) Last() (models.ConfluenceDecision, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.history) == 0 {
		return models.ConfluenceDecision{}, false
	}
	return e.history[len(e.history)-1], true
}
