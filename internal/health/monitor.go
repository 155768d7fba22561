// Package health tracks pipeline degradation: failing detectors and stream
// reconnect churn. The status API reports it instead of leaving silent gaps
// in the decision stream.
package health

import (
	"sort"
	"sync"
	"time"

	"Conflux/internal/domain/repository"
)

// failingWindow is how recently a detector must have errored to count as
// failing.
const failingWindow = 5 * time.Minute

// Monitor aggregates degradation signals. Safe for concurrent use.
type Monitor struct {
	mu          sync.Mutex
	reconnects  []time.Time
	lastError   map[string]time.Time
	errorCounts map[string]int
	now         func() time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{
		lastError:   make(map[string]time.Time),
		errorCounts: make(map[string]int),
		now:         time.Now,
	}
}

func (m *Monitor) NoteReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.reconnects = append(m.reconnects, now)
	m.prune(now)
}

func (m *Monitor) NoteDetectorFailure(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastError[id] = m.now()
	m.errorCounts[id]++
}

func (m *Monitor) prune(now time.Time) {
	cutoff := now.Add(-time.Hour)
	i := 0
	for ; i < len(m.reconnects); i++ {
		if m.reconnects[i].After(cutoff) {
			break
		}
	}
	m.reconnects = m.reconnects[i:]
}

// Status is the degradation snapshot served by the API.
type Status struct {
	State              string         `json:"state"` // ok | degraded
	FailingDetectors   []string       `json:"failing_detectors"`
	DetectorErrorTotal map[string]int `json:"detector_error_total,omitempty"`
	ReconnectsLastHour int            `json:"reconnects_last_hour"`
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.prune(now)

	st := Status{State: "ok", FailingDetectors: []string{}}
	for id, at := range m.lastError {
		if now.Sub(at) <= failingWindow {
			st.FailingDetectors = append(st.FailingDetectors, id)
		}
	}
	sort.Strings(st.FailingDetectors)
	st.ReconnectsLastHour = len(m.reconnects)
	if len(st.FailingDetectors) > 0 || st.ReconnectsLastHour > 3 {
		st.State = "degraded"
	}
	if len(m.errorCounts) > 0 {
		st.DetectorErrorTotal = make(map[string]int, len(m.errorCounts))
		for id, n := range m.errorCounts {
			st.DetectorErrorTotal[id] = n
		}
	}
	return st
}

// Metrics decorates a Metrics implementation so degradation signals feed the
// monitor without extra plumbing at the call sites.
type Metrics struct {
	repository.Metrics
	monitor *Monitor
}

func WrapMetrics(inner repository.Metrics, monitor *Monitor) *Metrics {
	return &Metrics{Metrics: inner, monitor: monitor}
}

func (m *Metrics) RecordReconnect(symbol string) {
	m.monitor.NoteReconnect()
	m.Metrics.RecordReconnect(symbol)
}

func (m *Metrics) RecordDetectorError(detectorID string) {
	m.monitor.NoteDetectorFailure(detectorID)
	m.Metrics.RecordDetectorError(detectorID)
}

func (m *Metrics) RecordDetectorTimeout(detectorID string) {
	m.monitor.NoteDetectorFailure(detectorID)
	m.Metrics.RecordDetectorTimeout(detectorID)
}
