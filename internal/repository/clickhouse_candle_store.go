package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"Conflux/internal/domain/models"
	domrepo "Conflux/internal/domain/repository"
	pkgch "Conflux/pkg/clickhouse"
	applogger "Conflux/pkg/logger"
)

// CHCandleStore serves historical candles from ClickHouse and persists
// closed trades. It implements both HistoryProvider (for backtests and as a
// bootstrap source when the exchange API is unreachable) and TradeSink.
type CHCandleStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHCandleStore(ch *pkgch.Client) *CHCandleStore {
	return &CHCandleStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHCandleStore) SetLogger(l *applogger.Logger) { s.l = l }

// Schema returns the DDL statements the store expects.
func (s *CHCandleStore) Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS conflux.candles (
            open_time DateTime64(3),
            symbol LowCardinality(String),
            tf LowCardinality(String),
            open Float64, high Float64, low Float64, close Float64,
            vol Float64
        ) ENGINE = ReplacingMergeTree ORDER BY (symbol, tf, open_time)`,
		`CREATE TABLE IF NOT EXISTS conflux.trades (
            closed_at DateTime64(3),
            opened_at DateTime64(3),
            symbol LowCardinality(String),
            side LowCardinality(String),
            exit_reason LowCardinality(String),
            entry_price Float64, exit_price Float64, size Float64,
            gross_pnl Float64, fees Float64, slippage Float64, net_pnl Float64
        ) ENGINE = MergeTree ORDER BY (symbol, closed_at)`,
	}
}

// FetchHistory returns the latest count candles for the symbol/timeframe,
// oldest first.
func (s *CHCandleStore) FetchHistory(ctx context.Context, symbol string, tf domrepo.Timeframe, count int) ([]models.Candle, error) {
	start := time.Now()
	const q = `
        SELECT open_time, symbol, open, high, low, close, vol
        FROM conflux.candles
        WHERE symbol = ? AND tf = ?
        ORDER BY open_time DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, string(tf), count)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse fetch_history query error",
				applogger.String("symbol", symbol),
				applogger.String("tf", string(tf)),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.Candle, 0, count)
	for rows.Next() {
		c := models.Candle{Closed: true}
		if err := rows.Scan(&c.OpenTime, &c.Symbol, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		tmp = append(tmp, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Info("clickhouse fetch_history ok",
			applogger.String("symbol", symbol),
			applogger.String("tf", string(tf)),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

// StoreCandle upserts one closed candle; ReplacingMergeTree collapses
// duplicate open times.
func (s *CHCandleStore) StoreCandle(ctx context.Context, tf domrepo.Timeframe, c models.Candle) error {
	const q = `INSERT INTO conflux.candles (open_time, symbol, tf, open, high, low, close, vol) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, c.OpenTime, c.Symbol, string(tf), c.Open, c.High, c.Low, c.Close, c.Volume)
	if err != nil {
		return fmt.Errorf("store candle: %w", err)
	}
	return nil
}

// StoreTrade appends one closed trade.
func (s *CHCandleStore) StoreTrade(ctx context.Context, t models.Trade) error {
	const q = `INSERT INTO conflux.trades
        (closed_at, opened_at, symbol, side, exit_reason, entry_price, exit_price, size, gross_pnl, fees, slippage, net_pnl)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		t.ClosedAt, t.OpenedAt, t.Symbol, t.Side.String(), string(t.ExitReason),
		t.EntryPrice, t.ExitPrice, t.Size, t.GrossPnL, t.Fees, t.Slippage, t.NetPnL,
	)
	if err != nil {
		return fmt.Errorf("store trade: %w", err)
	}
	return nil
}

func (s *CHCandleStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
