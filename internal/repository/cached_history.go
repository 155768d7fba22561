package repository

import (
	"context"
	"time"

	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	"Conflux/pkg/cache"
	applogger "Conflux/pkg/logger"
)

// CachedHistory decorates a HistoryProvider with a cache layer so repeated
// bootstraps (reconnect storms, multiple backtest runs) do not hammer the
// upstream API. Keyed by symbol/timeframe/count; a short TTL keeps the tail
// fresh.
type CachedHistory struct {
	next  repository.HistoryProvider
	cache cache.Service
	ttl   time.Duration
	l     *applogger.Logger
}

func NewCachedHistory(next repository.HistoryProvider, svc cache.Service, ttl time.Duration, l *applogger.Logger) *CachedHistory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedHistory{next: next, cache: svc, ttl: ttl, l: l}
}

func (h *CachedHistory) FetchHistory(ctx context.Context, symbol string, tf repository.Timeframe, count int) ([]models.Candle, error) {
	key := cache.GenerateKeyWithParams("history", symbol, tf, count)

	var cached []models.Candle
	if err := h.cache.Get(ctx, key, &cached); err == nil && len(cached) > 0 {
		return cached, nil
	} else if err != nil && err != cache.ErrCacheMiss && h.l != nil {
		h.l.Warn("history cache read failed", applogger.String("key", key), applogger.Error(err))
	}

	candles, err := h.next.FetchHistory(ctx, symbol, tf, count)
	if err != nil {
		return nil, err
	}
	if err := h.cache.Set(ctx, key, candles, h.ttl); err != nil && h.l != nil {
		h.l.Warn("history cache write failed", applogger.String("key", key), applogger.Error(err))
	}
	return candles, nil
}
