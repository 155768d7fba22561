// Package ingestor owns the candle stream: bootstrap from history, live
// consumption with reconnect/backoff, dedup and ordering, and the debounced
// evaluation trigger the pipeline runs on.
package ingestor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	"Conflux/pkg/logger"
)

type Config struct {
	Symbol         string               `yaml:"symbol" validate:"required"`
	Timeframe      repository.Timeframe `yaml:"timeframe" default:"5m"`
	BootstrapCount int                  `yaml:"bootstrap_count" default:"300" validate:"gt=0"`
	WindowSize     int                  `yaml:"window_size" default:"1000" validate:"gt=0"`
	Debounce       time.Duration        `yaml:"debounce" default:"1s"`

	BackoffBase   time.Duration `yaml:"backoff_base" default:"1s"`
	BackoffMax    time.Duration `yaml:"backoff_max" default:"30s"`
	BackoffFactor float64       `yaml:"backoff_factor" default:"2"`
	// StableAfter resets the backoff sequence once a connection has held
	// this long.
	StableAfter time.Duration `yaml:"stable_after" default:"60s"`
}

// Ingestor consumes one symbol's candle stream into a bounded window and
// emits one evaluation trigger per coalesced burst of updates.
type Ingestor struct {
	cfg     Config
	source  repository.CandleSource
	history repository.HistoryProvider
	logger  *logger.Logger
	metrics repository.Metrics

	ring       *ring
	triggers   chan struct{}
	reconnects chan struct{}

	received  atomic.Int64
	processed atomic.Int64
	dropped   atomic.Int64
	lastPrice atomic.Value // float64
}

type Option func(*Ingestor)

func WithMetrics(m repository.Metrics) Option {
	return func(i *Ingestor) { i.metrics = m }
}

func New(cfg Config, source repository.CandleSource, history repository.HistoryProvider, log *logger.Logger, opts ...Option) *Ingestor {
	if cfg.Debounce <= 0 {
		cfg.Debounce = time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.BackoffFactor <= 1 {
		cfg.BackoffFactor = 2
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = time.Minute
	}
	ing := &Ingestor{
		cfg:        cfg,
		source:     source,
		history:    history,
		logger:     log,
		ring:       newRing(cfg.WindowSize),
		triggers:   make(chan struct{}, 1),
		reconnects: make(chan struct{}, 8),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// Triggers delivers one signal per coalesced micro-batch of candle updates.
// The channel is buffered at one; a slow consumer sees bursts as a single
// trigger over the latest window state.
func (i *Ingestor) Triggers() <-chan struct{} { return i.triggers }

// Reconnects notifies dependents that the stream reconnected and the window
// was re-bootstrapped.
func (i *Ingestor) Reconnects() <-chan struct{} { return i.reconnects }

// Snapshot returns an immutable copy of the current window.
func (i *Ingestor) Snapshot() *models.Window { return i.ring.snapshot() }

// StreamStats is a point-in-time view of the stream counters.
type StreamStats struct {
	Received  int64   `json:"received"`
	Processed int64   `json:"processed"`
	Dropped   int64   `json:"dropped"`
	LastPrice float64 `json:"last_price"`
}

func (i *Ingestor) Stats() StreamStats {
	st := StreamStats{
		Received:  i.received.Load(),
		Processed: i.processed.Load(),
		Dropped:   i.dropped.Load(),
	}
	if v, ok := i.lastPrice.Load().(float64); ok {
		st.LastPrice = v
	}
	return st
}

// Start bootstraps the window then consumes the live stream until ctx is
// cancelled or a terminal connection error occurs. Transient failures are
// retried forever with exponential backoff and jitter.
func (i *Ingestor) Start(ctx context.Context) error {
	if err := i.bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	attempt := 0
	for {
		if err := i.connect(ctx); err != nil {
			if models.IsTerminal(err) || ctx.Err() != nil {
				return err
			}
			attempt++
			i.logger.Warn("stream connect failed",
				logger.String("symbol", i.cfg.Symbol),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			if !i.sleep(ctx, i.backoff(attempt)) {
				return ctx.Err()
			}
			continue
		}

		connectedAt := time.Now()
		err := i.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if models.IsTerminal(err) {
			return err
		}

		if time.Since(connectedAt) >= i.cfg.StableAfter {
			attempt = 0
		}
		attempt++
		if i.metrics != nil {
			i.metrics.RecordReconnect(i.cfg.Symbol)
		}
		i.logger.Warn("stream lost, reconnecting",
			logger.String("symbol", i.cfg.Symbol),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if !i.sleep(ctx, i.backoff(attempt)) {
			return ctx.Err()
		}
		// Re-bootstrap so candles missed during the outage are recovered
		// before live consumption resumes.
		if err := i.bootstrap(ctx); err != nil {
			i.logger.Error("re-bootstrap failed", logger.Error(err))
		}
		select {
		case i.reconnects <- struct{}{}:
		default:
		}
	}
}

func (i *Ingestor) bootstrap(ctx context.Context) error {
	candles, err := i.history.FetchHistory(ctx, i.cfg.Symbol, i.cfg.Timeframe, i.cfg.BootstrapCount)
	if err != nil {
		return err
	}
	i.ring.reset(candles)
	i.logger.Info("window bootstrapped",
		logger.String("symbol", i.cfg.Symbol),
		logger.String("timeframe", string(i.cfg.Timeframe)),
		logger.Int("candles", len(candles)),
	)
	i.fireTrigger()
	return nil
}

func (i *Ingestor) connect(ctx context.Context) error {
	if err := i.source.Connect(ctx); err != nil {
		return err
	}
	return i.source.Subscribe(ctx, i.cfg.Symbol, i.cfg.Timeframe)
}

// consume drains the stream until it errors or ctx ends. Candle updates are
// deduplicated and the evaluation trigger is debounced so a burst of
// intra-candle ticks costs one cycle.
func (i *Ingestor) consume(ctx context.Context) error {
	candles, errs := i.source.Read(ctx)

	debounce := time.NewTimer(i.cfg.Debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	armed := false
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return errors.New("stream error channel closed")
			}
			return err
		case c, ok := <-candles:
			if !ok {
				return errors.New("stream closed")
			}
			i.received.Add(1)
			if !c.Valid() {
				if i.metrics != nil {
					i.metrics.RecordCandleDropped(i.cfg.Symbol, "malformed")
				}
				i.logger.Warn("malformed candle skipped", logger.String("symbol", c.Symbol))
				i.dropped.Add(1)
				continue
			}
			if !i.ring.push(c) {
				if i.metrics != nil {
					i.metrics.RecordCandleDropped(i.cfg.Symbol, "out_of_order")
				}
				i.dropped.Add(1)
				i.logger.Debug("candle dropped",
					logger.String("symbol", i.cfg.Symbol),
					logger.Error(models.ErrOutOfOrder),
				)
				continue
			}
			i.processed.Add(1)
			i.lastPrice.Store(c.Close)
			if i.metrics != nil {
				i.metrics.RecordCandle(i.cfg.Symbol)
				i.metrics.RecordLastPrice(i.cfg.Symbol, c.Close)
			}
			if !armed {
				debounce.Reset(i.cfg.Debounce)
				armed = true
			}
		case <-debounce.C:
			armed = false
			i.fireTrigger()
		}
	}
}

func (i *Ingestor) fireTrigger() {
	select {
	case i.triggers <- struct{}{}:
	default:
	}
}

// backoff returns the delay before reconnect attempt n (1-based) with ±20%
// jitter.
func (i *Ingestor) backoff(attempt int) time.Duration {
	d := float64(i.cfg.BackoffBase)
	for n := 1; n < attempt; n++ {
		d *= i.cfg.BackoffFactor
		if d >= float64(i.cfg.BackoffMax) {
			d = float64(i.cfg.BackoffMax)
			break
		}
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	return time.Duration(d * jitter)
}

func (i *Ingestor) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
