package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grillworks/smokewatch/errors"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	require.NotNil(t, registry)
	require.NotNil(t, registry.PrometheusRegistry())
	require.NotNil(t, registry.CoreMetrics())

	// Core metrics must be gatherable without touching them first
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter_total",
		Help: "Test counter",
	})

	err := registry.RegisterCounter("monitor", "test_counter", counter)
	require.NoError(t, err)

	counter.Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(counter))
}

func TestRegisterCounter_Duplicate(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dup_counter_total",
		Help: "Test counter",
	})

	require.NoError(t, registry.RegisterCounter("monitor", "dup", counter))

	err := registry.RegisterCounter("monitor", "dup", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "Test gauge",
	})
	require.NoError(t, registry.RegisterGauge("monitor", "test_gauge", gauge))

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "test_histogram",
		Help: "Test histogram",
	})
	require.NoError(t, registry.RegisterHistogram("monitor", "test_histogram", histogram))

	gauge.Set(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(gauge))
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unreg_counter_total",
		Help: "Test counter",
	})
	require.NoError(t, registry.RegisterCounter("monitor", "unreg", counter))

	assert.True(t, registry.Unregister("monitor", "unreg"))
	assert.False(t, registry.Unregister("monitor", "unreg"))

	// Slot is free again after unregistering
	require.NoError(t, registry.RegisterCounter("monitor", "unreg", counter))
}

func TestCoreMetricRecorders(t *testing.T) {
	m := NewMetrics()

	m.RecordMessageReceived("smoker")
	m.RecordMessageReceived("smoker")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesReceived.WithLabelValues("smoker")))

	m.RecordDecodeError("smoker", "missing_field")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DecodeErrors.WithLabelValues("smoker", "missing_field")))

	m.RecordStall("smoker")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StallsDetected.WithLabelValues("smoker")))

	m.RecordWindow("smoker", 5, 0.3)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.WindowFill.WithLabelValues("smoker")))
	assert.InDelta(t, 0.3, testutil.ToFloat64(m.WindowRange.WithLabelValues("smoker")), 1e-9)

	m.RecordNATSStatus(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))
	m.RecordNATSStatus(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.NATSConnected))

	m.RecordProcessingDuration("smoker", 2*time.Millisecond)
}
