package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	reconnects       *prometheus.CounterVec
	candles          *prometheus.CounterVec
	candlesDropped   *prometheus.CounterVec
	detectorErrors   *prometheus.CounterVec
	detectorTimeouts *prometheus.CounterVec
	cycleLatency     prometheus.Histogram
	decisions        *prometheus.CounterVec
	tradesClosed     *prometheus.CounterVec
	lastPrice        *prometheus.GaugeVec
	errorsTotal      *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		reconnects: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_stream_reconnects_total",
				Help: "Total number of stream reconnections",
			},
			[]string{"symbol"},
		),
		candles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_candles_total",
				Help: "Total number of candle updates accepted",
			},
			[]string{"symbol"},
		),
		candlesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_candles_dropped_total",
				Help: "Total number of candle updates dropped",
			},
			[]string{"symbol", "reason"},
		),
		detectorErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_detector_errors_total",
				Help: "Total number of detector evaluation errors",
			},
			[]string{"detector"},
		),
		detectorTimeouts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_detector_timeouts_total",
				Help: "Total number of detectors exceeding the cycle deadline",
			},
			[]string{"detector"},
		),
		cycleLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "conflux_cycle_duration_seconds",
				Help:    "Duration of one evaluation cycle in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .2, .5, 1},
			},
		),
		decisions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_decisions_total",
				Help: "Total number of confluence decisions by direction",
			},
			[]string{"symbol", "direction"},
		),
		tradesClosed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_trades_closed_total",
				Help: "Total number of simulated trades closed by exit reason",
			},
			[]string{"symbol", "reason"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "conflux_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordReconnect(symbol string) {
	r.reconnects.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordCandle(symbol string) {
	r.candles.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordCandleDropped(symbol, reason string) {
	r.candlesDropped.WithLabelValues(symbol, reason).Inc()
}

func (r *Recorder) RecordDetectorError(detectorID string) {
	r.detectorErrors.WithLabelValues(detectorID).Inc()
}

func (r *Recorder) RecordDetectorTimeout(detectorID string) {
	r.detectorTimeouts.WithLabelValues(detectorID).Inc()
}

func (r *Recorder) RecordCycleLatency(seconds float64) {
	r.cycleLatency.Observe(seconds)
}

func (r *Recorder) RecordDecision(symbol, direction string) {
	r.decisions.WithLabelValues(symbol, direction).Inc()
}

func (r *Recorder) RecordTradeClosed(symbol, reason string) {
	r.tradesClosed.WithLabelValues(symbol, reason).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
