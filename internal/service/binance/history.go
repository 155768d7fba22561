package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"Conflux/internal/domain/models"
	drepo "Conflux/internal/domain/repository"
	"Conflux/internal/service/ratelimit"
	phttp "Conflux/pkg/http"
)

const klinesPath = "/api/v3/klines"

// History implements HistoryProvider against the Binance REST klines
// endpoint. Requests are paced through a token bucket so bootstrap bursts
// stay inside the exchange's request weight limits.
type History struct {
	baseURL string
	client  *phttp.Client
	limiter *ratelimit.Limiter
}

func NewHistory(baseURL string, client *phttp.Client, limiter *ratelimit.Limiter) *History {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &History{baseURL: baseURL, client: client, limiter: limiter}
}

// FetchHistory returns the most recent count closed candles, oldest first.
// An unknown symbol is a terminal ConnectionError; everything else is
// transient and retried by the caller.
func (h *History) FetchHistory(ctx context.Context, symbol string, tf drepo.Timeframe, count int) ([]models.Candle, error) {
	if count <= 0 {
		return nil, nil
	}
	if err := h.limiter.Wait(ctx, "klines", 10, 2); err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	err := h.client.SendAndParse(ctx, &phttp.RequestOptions{
		Method: phttp.MethodGet,
		URL:    h.baseURL + klinesPath,
		QueryParams: map[string][]string{
			"symbol":   {strings.ToUpper(symbol)},
			"interval": {string(tf)},
			"limit":    {strconv.Itoa(count)},
		},
	}, &raw)
	if err != nil {
		if strings.Contains(err.Error(), "-1121") || strings.Contains(err.Error(), "Invalid symbol") {
			return nil, &models.ConnectionError{Op: "fetch history", Err: err, Terminal: true}
		}
		return nil, &models.ConnectionError{Op: "fetch history", Err: err}
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, row := range raw {
		c, err := parseKlineRow(row, strings.ToUpper(symbol))
		if err != nil {
			return nil, fmt.Errorf("parse kline: %w", err)
		}
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	return candles, nil
}

// parseKlineRow decodes one REST kline entry:
// [openTime, open, high, low, close, volume, closeTime, ...].
func parseKlineRow(row json.RawMessage, symbol string) (models.Candle, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil {
		return models.Candle{}, err
	}
	if len(fields) < 6 {
		return models.Candle{}, fmt.Errorf("short row: %d fields", len(fields))
	}

	var openMs int64
	if err := json.Unmarshal(fields[0], &openMs); err != nil {
		return models.Candle{}, fmt.Errorf("open time: %w", err)
	}
	c := models.Candle{
		OpenTime: time.UnixMilli(openMs).UTC(),
		Symbol:   symbol,
		Closed:   true,
	}
	for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
		var s string
		if err := json.Unmarshal(fields[i+1], &s); err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		*dst = v
	}
	return c, nil
}
