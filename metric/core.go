// Package metric provides Prometheus metrics for the smokewatch service.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all platform-level metrics shared across components.
// Component-specific metrics are registered separately via the registry.
type Metrics struct {
	ServiceStatus      *prometheus.GaugeVec
	MessagesReceived   *prometheus.CounterVec
	MessagesProcessed  *prometheus.CounterVec
	DecodeErrors       *prometheus.CounterVec
	StallsDetected     *prometheus.CounterVec
	WindowRange        *prometheus.GaugeVec
	WindowFill         *prometheus.GaugeVec
	ProcessingDuration *prometheus.HistogramVec
	NATSConnected      prometheus.Gauge
	NATSReconnects     prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ServiceStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "smokewatch",
				Subsystem: "service",
				Name:      "status",
				Help:      "Component lifecycle state (0=created, 1=initialized, 2=started, 3=stopped, 4=failed)",
			},
			[]string{"component"},
		),

		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smokewatch",
				Subsystem: "messages",
				Name:      "received_total",
				Help:      "Total messages received from the sensor stream",
			},
			[]string{"sensor"},
		),

		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smokewatch",
				Subsystem: "messages",
				Name:      "processed_total",
				Help:      "Total messages processed, by outcome",
			},
			[]string{"sensor", "status"},
		),

		DecodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smokewatch",
				Subsystem: "decode",
				Name:      "errors_total",
				Help:      "Payloads rejected by the decoder, by reason",
			},
			[]string{"sensor", "reason"},
		),

		StallsDetected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smokewatch",
				Subsystem: "detector",
				Name:      "stalls_total",
				Help:      "Stall decisions emitted",
			},
			[]string{"sensor"},
		),

		WindowRange: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "smokewatch",
				Subsystem: "detector",
				Name:      "window_range",
				Help:      "Spread (max-min) of the most recent full window",
			},
			[]string{"sensor"},
		),

		WindowFill: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "smokewatch",
				Subsystem: "detector",
				Name:      "window_fill",
				Help:      "Values currently held in the rolling window",
			},
			[]string{"sensor"},
		),

		ProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "smokewatch",
				Subsystem: "processing",
				Name:      "duration_seconds",
				Help:      "Per-message pipeline duration in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"sensor"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "smokewatch",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "smokewatch",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total NATS reconnections",
			},
		),
	}
}

// RecordServiceStatus updates a component's lifecycle state metric
func (m *Metrics) RecordServiceStatus(component string, status int) {
	m.ServiceStatus.WithLabelValues(component).Set(float64(status))
}

// RecordMessageReceived increments the received counter for a sensor
func (m *Metrics) RecordMessageReceived(sensor string) {
	m.MessagesReceived.WithLabelValues(sensor).Inc()
}

// RecordMessageProcessed increments the processed counter for a sensor
func (m *Metrics) RecordMessageProcessed(sensor, status string) {
	m.MessagesProcessed.WithLabelValues(sensor, status).Inc()
}

// RecordDecodeError increments the decode error counter for a sensor
func (m *Metrics) RecordDecodeError(sensor, reason string) {
	m.DecodeErrors.WithLabelValues(sensor, reason).Inc()
}

// RecordStall increments the stall counter for a sensor
func (m *Metrics) RecordStall(sensor string) {
	m.StallsDetected.WithLabelValues(sensor).Inc()
}

// RecordWindow updates the window gauges for a sensor
func (m *Metrics) RecordWindow(sensor string, fill int, spread float64) {
	m.WindowFill.WithLabelValues(sensor).Set(float64(fill))
	m.WindowRange.WithLabelValues(sensor).Set(spread)
}

// RecordProcessingDuration records per-message pipeline time
func (m *Metrics) RecordProcessingDuration(sensor string, d time.Duration) {
	m.ProcessingDuration.WithLabelValues(sensor).Observe(d.Seconds())
}

// RecordNATSStatus updates the NATS connection gauge
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSReconnect increments the reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
