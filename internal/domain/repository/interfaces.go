package repository

import (
	"context"

	"Conflux/internal/domain/models"
)

// CandleSource is the external market-data collaborator. Subscribe streams
// live bars; failures surface as *models.ConnectionError so callers can tell
// transient from terminal conditions.
type CandleSource interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbol string, tf Timeframe) error
	Read(ctx context.Context) (<-chan models.Candle, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// HistoryProvider serves the bootstrap slice. Whether candles come from a
// cache, a database or a live API is transparent to the core.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, symbol string, tf Timeframe, count int) ([]models.Candle, error)
}

// EventBus receives every confluence decision and every closed trade for the
// presentation layer to consume. The core makes no rendering assumptions.
type EventBus interface {
	PublishDecision(ctx context.Context, d models.ConfluenceDecision) error
	PublishTrade(ctx context.Context, t models.Trade) error
	Close() error
}

// TradeSink optionally persists closed trades.
type TradeSink interface {
	StoreTrade(ctx context.Context, t models.Trade) error
}

// CandleSink optionally persists streamed candles so later replays can read
// them back instead of hitting the exchange API.
type CandleSink interface {
	StoreCandle(ctx context.Context, tf Timeframe, c models.Candle) error
}

// Metrics is the observability surface of the pipeline.
type Metrics interface {
	RecordReconnect(symbol string)
	RecordCandle(symbol string)
	RecordCandleDropped(symbol, reason string)
	RecordDetectorError(detectorID string)
	RecordDetectorTimeout(detectorID string)
	RecordCycleLatency(seconds float64)
	RecordDecision(symbol, direction string)
	RecordTradeClosed(symbol, reason string)
	RecordLastPrice(symbol string, price float64)
	RecordError(kind string)
}
