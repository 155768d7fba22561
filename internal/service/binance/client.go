// Package binance implements the CandleSource and HistoryProvider
// collaborators against the Binance spot WebSocket and REST APIs.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"Conflux/internal/domain/models"
	drepo "Conflux/internal/domain/repository"
	"Conflux/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a CandleSource backed by the Binance kline stream.
type Client struct {
	websocketURL string
	pingInterval time.Duration
	logger       *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	subID     int
}

func NewClient(websocketURL string, pingInterval time.Duration, log *logger.Logger) drepo.CandleSource {
	if websocketURL == "" {
		websocketURL = "wss://stream.binance.com:9443/ws"
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		websocketURL: websocketURL,
		pingInterval: pingInterval,
		logger:       log,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return &models.ConnectionError{Op: "connect", Err: err}
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("binance: connected", logger.String("url", c.websocketURL))
	return nil
}

// Subscribe subscribes to one symbol's kline stream for the timeframe.
func (c *Client) Subscribe(ctx context.Context, symbol string, tf drepo.Timeframe) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return &models.ConnectionError{Op: "subscribe", Err: fmt.Errorf("not connected")}
	}
	c.subID++
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), tf)},
		"id":     c.subID,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return &models.ConnectionError{Op: "subscribe", Err: err}
	}
	c.logger.Info("binance: subscribed",
		logger.String("symbol", symbol),
		logger.String("timeframe", string(tf)),
	)
	return nil
}

type wsKline struct {
	OpenTime int64  `json:"t"`
	Symbol   string `json:"s"`
	Open     string `json:"o"`
	Close    string `json:"c"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Volume   string `json:"v"`
	Closed   bool   `json:"x"`
}

type wsMessage struct {
	Event  string  `json:"e"`
	Symbol string  `json:"s"`
	Kline  wsKline `json:"k"`
}

// Read streams candle updates and errors. Non-kline frames are ignored;
// frames that fail to parse as numbers are skipped with a warning.
func (c *Client) Read(ctx context.Context) (<-chan models.Candle, <-chan error) {
	candles := make(chan models.Candle, 256)
	errs := make(chan error, 1)
	// done tracks the read loop; the keepalive must not outlive it, or each
	// reconnect would stack another ticker against the app-lifetime ctx.
	done := make(chan struct{})

	// keepalive
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(done)
		defer close(candles)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- &models.ConnectionError{Op: "read", Err: fmt.Errorf("connection lost")}
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- &models.ConnectionError{Op: "read", Err: err}
				return
			}
			var m wsMessage
			if err := json.Unmarshal(b, &m); err != nil || m.Event != "kline" {
				// subscription acks and other frames
				continue
			}
			candle, err := m.Kline.toCandle()
			if err != nil {
				c.logger.Warn("binance: bad kline frame", logger.Error(err))
				continue
			}
			select {
			case candles <- candle:
			default:
				// drop on backpressure; the next update supersedes it
			}
		}
	}()

	return candles, errs
}

func (k wsKline) toCandle() (models.Candle, error) {
	var (
		c   models.Candle
		err error
	)
	c.OpenTime = time.UnixMilli(k.OpenTime).UTC()
	c.Symbol = k.Symbol
	c.Closed = k.Closed
	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, fmt.Errorf("parse open: %w", err)
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, fmt.Errorf("parse high: %w", err)
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, fmt.Errorf("parse low: %w", err)
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, fmt.Errorf("parse close: %w", err)
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, fmt.Errorf("parse volume: %w", err)
	}
	return c, nil
}

// Reconnect closes and re-dials.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	return c.Connect(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
