package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"Conflux/internal/confluence"
	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	"Conflux/internal/evaluator"
	"Conflux/internal/regime"
	"Conflux/internal/simulator"
	"Conflux/pkg/logger"
)

// Backtest replays historical candles through the identical decision path
// the live pipeline uses. Same window + same config yields the same trades;
// timestamps come from the candles, never the wall clock.
type Backtest struct {
	symbol  string
	window  int
	history repository.HistoryProvider
	eval    *evaluator.Evaluator
	regimes *regime.Analyzer
	engine  *confluence.Engine
	sim     *simulator.Simulator
	logger  *logger.Logger
}

func NewBacktest(
	symbol string,
	windowSize int,
	history repository.HistoryProvider,
	eval *evaluator.Evaluator,
	regimes *regime.Analyzer,
	engine *confluence.Engine,
	sim *simulator.Simulator,
	log *logger.Logger,
) *Backtest {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &Backtest{
		symbol:  symbol,
		window:  windowSize,
		history: history,
		eval:    eval,
		regimes: regimes,
		engine:  engine,
		sim:     sim,
		logger:  log,
	}
}

// Report is the backtest outcome.
type Report struct {
	Symbol     string          `json:"symbol"`
	Timeframe  string          `json:"timeframe"`
	Candles    int             `json:"candles"`
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Decisions  int             `json:"decisions"`
	Actionable int             `json:"actionable"`
	Rejected   int             `json:"rejected_by_regime"`
	Account    simulator.Stats `json:"account"`
	Trades     []models.Trade  `json:"trades"`
}

// Run fetches count candles and replays them oldest-first. The window warms
// up as candles accumulate; detectors abstain until they have enough data.
func (b *Backtest) Run(ctx context.Context, tf repository.Timeframe, count int) (*Report, error) {
	candles, err := b.history.FetchHistory(ctx, b.symbol, tf, count)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles for %s %s", b.symbol, tf)
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	report := &Report{
		Symbol:    b.symbol,
		Timeframe: string(tf),
		Candles:   len(candles),
		From:      candles[0].OpenTime,
		To:        candles[len(candles)-1].OpenTime,
	}

	buf := make([]models.Candle, 0, b.window)
	for _, c := range candles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(buf) == b.window {
			copy(buf, buf[1:])
			buf = buf[:b.window-1]
		}
		buf = append(buf, c)
		if len(buf) < minWindow {
			continue
		}

		w := models.NewWindow(append([]models.Candle(nil), buf...))
		rc := b.regimes.Analyze(w)
		batch := b.eval.Evaluate(ctx, w)
		dec := b.engine.Decide(b.symbol, batch, rc, c.Close)

		report.Decisions++
		if dec.Actionable() {
			report.Actionable++
		}
		if dec.RejectedByRegime {
			report.Rejected++
		}

		b.sim.OnCandle(c)
		if err := b.sim.OnDecision(dec, rc.Volatility); err != nil {
			b.logger.Warn("decision dropped", logger.Error(err))
		}
	}

	report.Account = b.sim.Stats()
	report.Trades = b.sim.Trades()
	b.logger.Info("backtest complete",
		logger.String("symbol", b.symbol),
		logger.Int("candles", report.Candles),
		logger.Int("trades", report.Account.TotalTrades),
		logger.Any("net_pnl", report.Account.NetPnL),
		logger.Any("win_rate", report.Account.WinRate),
	)
	return report, nil
}
