package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/grillworks/smokewatch/metric"
)

// Metrics holds Prometheus metrics for one sensor monitor
type Metrics struct {
	currentTemperature prometheus.Gauge
	evaluations        prometheus.Counter
	lastActivity       prometheus.Gauge
}

// newMetrics creates and registers per-sensor monitor metrics
func newMetrics(registry *metric.MetricsRegistry, sensor string) *Metrics {
	// Return nil if no registry provided (nil input = nil feature pattern)
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		currentTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "smokewatch",
			Subsystem:   "monitor",
			Name:        "current_temperature",
			Help:        "Most recently decoded temperature reading",
			ConstLabels: prometheus.Labels{"sensor": sensor},
		}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "smokewatch",
			Subsystem:   "monitor",
			Name:        "evaluations_total",
			Help:        "Detector evaluations performed",
			ConstLabels: prometheus.Labels{"sensor": sensor},
		}),
		lastActivity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "smokewatch",
			Subsystem:   "monitor",
			Name:        "last_activity_timestamp",
			Help:        "Unix timestamp of last decoded reading",
			ConstLabels: prometheus.Labels{"sensor": sensor},
		}),
	}

	componentName := "monitor_" + sensor
	registry.RegisterGauge(componentName, "current_temperature", metrics.currentTemperature)
	registry.RegisterCounter(componentName, "evaluations", metrics.evaluations)
	registry.RegisterGauge(componentName, "last_activity", metrics.lastActivity)

	return metrics
}
