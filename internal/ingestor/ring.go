package ingestor

import (
	"sync"

	"Conflux/internal/domain/models"
)

// ring keeps the most recent capacity candles. One writer (the ingestor
// loop); Snapshot copies for readers so evaluation cycles never observe a
// mutating buffer.
type ring struct {
	mu       sync.RWMutex
	buf      []models.Candle
	capacity int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ring{buf: make([]models.Candle, 0, capacity), capacity: capacity}
}

// push appends a candle or replaces the forming one in place. Returns false
// when the candle is older than the newest entry.
func (r *ring) push(c models.Candle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.buf); n > 0 {
		last := r.buf[n-1].OpenTime
		if c.OpenTime.Before(last) {
			return false
		}
		if c.OpenTime.Equal(last) {
			r.buf[n-1] = c
			return true
		}
	}
	if len(r.buf) == r.capacity {
		copy(r.buf, r.buf[1:])
		r.buf = r.buf[:r.capacity-1]
	}
	r.buf = append(r.buf, c)
	return true
}

// reset replaces the buffer contents with the tail of candles.
func (r *ring) reset(candles []models.Candle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(candles) > r.capacity {
		candles = candles[len(candles)-r.capacity:]
	}
	r.buf = r.buf[:0]
	r.buf = append(r.buf, candles...)
}

func (r *ring) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buf)
}

// snapshot copies the buffer into an immutable window.
func (r *ring) snapshot() *models.Window {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Candle, len(r.buf))
	copy(out, r.buf)
	return models.NewWindow(out)
}
