// Package simulator executes confluence decisions against candle data as a
// paper-trading account. The same fill logic serves live paper trading and
// historical backtests.
package simulator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	"Conflux/pkg/logger"
)

// Config sizes positions and places exits from a volatility measure rather
// than fixed distances.
type Config struct {
	InitialEquity   float64 `yaml:"initial_equity" default:"10000" validate:"gt=0"`
	PositionSizePct float64 `yaml:"position_size_pct" default:"0.02" validate:"gt=0,lte=1"`
	StopATRMult     float64 `yaml:"stop_atr_mult" default:"1.5" validate:"gt=0"`
	TargetATRMult   float64 `yaml:"target_atr_mult" default:"3.0" validate:"gt=0"`
	// StopFirst honors the stop before the target when one candle's range
	// covers both levels. Conservative gap-risk policy, on by default.
	StopFirst     bool `yaml:"stop_first" default:"true"`
	EntryNextOpen bool `yaml:"entry_next_open"`

	MakerFeeRate float64 `yaml:"maker_fee_rate" default:"0.001" validate:"gte=0"`
	TakerFeeRate float64 `yaml:"taker_fee_rate" default:"0.001" validate:"gte=0"`
	SlippageRate float64 `yaml:"slippage_rate" default:"0.0005" validate:"gte=0"`
}

func (c Config) costModel() models.CostModel {
	return models.CostModel{
		MakerFeeRate: c.MakerFeeRate,
		TakerFeeRate: c.TakerFeeRate,
		SlippageRate: c.SlippageRate,
	}
}

// Stats summarizes the session ledger.
type Stats struct {
	Equity        float64
	InitialEquity float64
	TotalTrades   int
	Wins          int
	Losses        int
	WinRate       float64
	GrossPnL      float64
	NetPnL        float64
	TotalFees     float64
	MaxDrawdown   float64
}

// Simulator is a single-account paper trader: one open position at a time,
// FLAT/LONG/SHORT state machine, append-only trade ledger. A single caller
// drives OnDecision/OnCandle; readers may snapshot concurrently.
type Simulator struct {
	cfg     Config
	logger  *logger.Logger
	metrics repository.Metrics
	sink    repository.TradeSink
	onTrade func(models.Trade)

	mu          sync.RWMutex
	state       models.Side
	position    models.Position
	pendingDir  models.Direction
	pendingSize float64
	pendingStop float64
	pendingTgt  float64
	equity      float64
	peakEquity  float64
	maxDrawdown float64
	trades      []models.Trade
}

type Option func(*Simulator)

func WithMetrics(m repository.Metrics) Option {
	return func(s *Simulator) { s.metrics = m }
}

// WithTradeSink forwards each closed trade to persistent storage.
func WithTradeSink(sink repository.TradeSink) Option {
	return func(s *Simulator) { s.sink = sink }
}

// WithTradeHook invokes fn for each closed trade, after the ledger update.
func WithTradeHook(fn func(models.Trade)) Option {
	return func(s *Simulator) { s.onTrade = fn }
}

func New(cfg Config, log *logger.Logger, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:        cfg,
		logger:     log,
		state:      models.Flat,
		equity:     cfg.InitialEquity,
		peakEquity: cfg.InitialEquity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnDecision handles an actionable decision at the decision candle. While
// FLAT it opens a position at the candle close (or queues it for the next
// open); while positioned, a same-direction decision is ignored and an
// opposing one exits at the close with reason REVERSAL before the queue for
// re-entry is considered.
func (s *Simulator) OnDecision(dec models.ConfluenceDecision, atr float64) error {
	if !dec.Actionable() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != models.Flat {
		sameDir := (s.state == models.Long && dec.Direction == models.Buy) ||
			(s.state == models.Short && dec.Direction == models.Sell)
		if sameDir {
			return nil
		}
		s.closeLocked(dec.Price, dec.Timestamp, models.ExitReversal)
	}

	if atr <= 0 {
		return &models.SimulationInvariantError{
			State: s.state.String(),
			Msg:   fmt.Sprintf("non-positive volatility %.6f, decision dropped", atr),
		}
	}

	size := s.equity * s.cfg.PositionSizePct
	stopDist := atr * s.cfg.StopATRMult
	tgtDist := atr * s.cfg.TargetATRMult

	if s.cfg.EntryNextOpen {
		s.pendingDir = dec.Direction
		s.pendingSize = size
		s.pendingStop = stopDist
		s.pendingTgt = tgtDist
		return nil
	}
	s.openLocked(dec, dec.Price, size, stopDist, tgtDist, false)
	return nil
}

func (s *Simulator) openLocked(dec models.ConfluenceDecision, entry, size, stopDist, tgtDist float64, maker bool) {
	if s.state != models.Flat {
		s.logger.Error("refusing to open while positioned",
			logger.String("state", s.state.String()),
		)
		return
	}
	pos := models.Position{
		Symbol:     dec.Symbol,
		EntryPrice: entry,
		Size:       size,
		OpenedAt:   dec.Timestamp,
		EntryMaker: maker,
	}
	if dec.Direction == models.Buy {
		pos.Side = models.Long
		pos.StopPrice = entry - stopDist
		pos.TargetPrice = entry + tgtDist
	} else {
		pos.Side = models.Short
		pos.StopPrice = entry + stopDist
		pos.TargetPrice = entry - tgtDist
	}
	s.position = pos
	s.state = pos.Side
	s.logger.Info("position opened",
		logger.String("symbol", pos.Symbol),
		logger.String("side", pos.Side.String()),
		logger.Any("entry", pos.EntryPrice),
		logger.Any("stop", pos.StopPrice),
		logger.Any("target", pos.TargetPrice),
	)
}

// OnCandle evaluates intrabar exits against the candle's full range and
// fills any entry queued for next-open.
func (s *Simulator) OnCandle(c models.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == models.Flat {
		if s.pendingDir != models.None {
			dec := models.ConfluenceDecision{
				Symbol:    c.Symbol,
				Direction: s.pendingDir,
				Timestamp: c.OpenTime,
			}
			// a queued entry rests at the open, so it fills as a maker order
			s.openLocked(dec, c.Open, s.pendingSize, s.pendingStop, s.pendingTgt, true)
			s.pendingDir = models.None
		}
		return
	}

	stopHit, targetHit := s.levelsHit(c)
	switch {
	case stopHit && targetHit:
		if s.cfg.StopFirst {
			s.closeLocked(s.position.StopPrice, c.OpenTime, models.ExitStop)
		} else {
			s.closeLocked(s.position.TargetPrice, c.OpenTime, models.ExitTarget)
		}
	case stopHit:
		s.closeLocked(s.position.StopPrice, c.OpenTime, models.ExitStop)
	case targetHit:
		s.closeLocked(s.position.TargetPrice, c.OpenTime, models.ExitTarget)
	}
}

func (s *Simulator) levelsHit(c models.Candle) (stop, target bool) {
	p := s.position
	if p.Side == models.Long {
		return c.Low <= p.StopPrice, c.High >= p.TargetPrice
	}
	return c.High >= p.StopPrice, c.Low <= p.TargetPrice
}

func (s *Simulator) closeLocked(exitPrice float64, at time.Time, reason models.ExitReason) {
	p := s.position
	units := p.Size / p.EntryPrice
	gross := (exitPrice - p.EntryPrice) * units
	if p.Side == models.Short {
		gross = (p.EntryPrice - exitPrice) * units
	}
	trade := ApplyCosts(models.Trade{
		Symbol:     p.Symbol,
		Side:       p.Side,
		EntryPrice: p.EntryPrice,
		ExitPrice:  exitPrice,
		Size:       p.Size,
		OpenedAt:   p.OpenedAt,
		ClosedAt:   at,
		ExitReason: reason,
		EntryMaker: p.EntryMaker,
		GrossPnL:   gross,
	}, s.cfg.costModel())

	s.trades = append(s.trades, trade)
	s.equity += trade.NetPnL
	if s.equity > s.peakEquity {
		s.peakEquity = s.equity
	}
	if dd := s.peakEquity - s.equity; dd > s.maxDrawdown {
		s.maxDrawdown = dd
	}
	s.state = models.Flat
	s.position = models.Position{}

	if s.metrics != nil {
		s.metrics.RecordTradeClosed(trade.Symbol, string(reason))
	}
	if s.sink != nil {
		if err := s.sink.StoreTrade(context.Background(), trade); err != nil {
			s.logger.Error("trade persistence failed", logger.Error(err))
		}
	}
	if s.onTrade != nil {
		s.onTrade(trade)
	}
	s.logger.Info("position closed",
		logger.String("symbol", trade.Symbol),
		logger.String("side", trade.Side.String()),
		logger.String("reason", string(reason)),
		logger.Any("net_pnl", trade.NetPnL),
		logger.Any("equity", s.equity),
	)
}

// ApplyCosts turns a gross trade into a net one under the cost model. The
// exit is always a taker fill; the entry is a maker fill when it rested at
// the next open, charging the maker rate and no slippage. Pure function.
func ApplyCosts(t models.Trade, m models.CostModel) models.Trade {
	entryNotional := t.Size
	exitNotional := t.Size * (t.ExitPrice / t.EntryPrice)
	entryFeeRate := m.TakerFeeRate
	entrySlippage := entryNotional * m.SlippageRate
	if t.EntryMaker {
		entryFeeRate = m.MakerFeeRate
		entrySlippage = 0
	}
	t.Fees = entryNotional*entryFeeRate + exitNotional*m.TakerFeeRate
	t.Slippage = entrySlippage + exitNotional*m.SlippageRate
	t.NetPnL = t.GrossPnL - t.Fees - t.Slippage
	return t
}

// State returns the current FSM state and open position.
func (s *Simulator) State() (models.Side, models.Position) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.position
}

// Trades returns a copy of the closed-trade ledger, oldest first.
func (s *Simulator) Trades() []models.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

// Stats summarizes the ledger and current equity.
func (s *Simulator) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Equity:        s.equity,
		InitialEquity: s.cfg.InitialEquity,
		TotalTrades:   len(s.trades),
		MaxDrawdown:   s.maxDrawdown,
	}
	for _, t := range s.trades {
		st.GrossPnL += t.GrossPnL
		st.NetPnL += t.NetPnL
		st.TotalFees += t.Fees
		if t.NetPnL > 0 {
			st.Wins++
		} else {
			st.Losses++
		}
	}
	if st.TotalTrades > 0 {
		st.WinRate = float64(st.Wins) / float64(st.TotalTrades)
	}
	return st
}
