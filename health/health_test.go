package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grillworks/smokewatch/component"
)

func TestStatusPredicates(t *testing.T) {
	assert.True(t, NewHealthy("monitor", "ok").IsHealthy())
	assert.True(t, NewDegraded("monitor", "slow").IsDegraded())
	assert.True(t, NewUnhealthy("monitor", "down").IsUnhealthy())

	assert.False(t, NewDegraded("monitor", "slow").Healthy)
	assert.False(t, NewUnhealthy("monitor", "down").Healthy)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name string
		subs []Status
		want string
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Status{NewHealthy("a", ""), NewHealthy("b", "")}, StatusHealthy},
		{"one degraded", []Status{NewHealthy("a", ""), NewDegraded("b", "")}, StatusDegraded},
		{"one unhealthy", []Status{NewDegraded("a", ""), NewUnhealthy("b", "")}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("service", tt.subs)
			assert.Equal(t, tt.want, got.Status)
			assert.Len(t, got.SubStatuses, len(tt.subs))
		})
	}
}

func TestMonitor_UpdateAndGet(t *testing.T) {
	m := NewMonitor()

	m.UpdateHealthy("monitor-smoker", "processing")
	m.UpdateUnhealthy("alert-writer", "disk full")

	status, ok := m.Get("monitor-smoker")
	require.True(t, ok)
	assert.True(t, status.IsHealthy())
	assert.Equal(t, "monitor-smoker", status.Component)
	assert.False(t, status.Timestamp.IsZero())

	_, ok = m.Get("unknown")
	assert.False(t, ok)

	assert.Equal(t, 2, m.Count())
}

func TestMonitor_AggregateHealth(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("monitor-smoker", "ok")
	m.UpdateDegraded("alert-writer", "buffer near capacity")

	agg := m.AggregateHealth("smokewatch")
	assert.Equal(t, StatusDegraded, agg.Status)
	assert.Len(t, agg.SubStatuses, 2)

	m.Remove("alert-writer")
	agg = m.AggregateHealth("smokewatch")
	assert.Equal(t, StatusHealthy, agg.Status)
}

func TestMonitor_GetAllReturnsCopy(t *testing.T) {
	m := NewMonitor()
	m.UpdateHealthy("monitor-smoker", "ok")

	all := m.GetAll()
	delete(all, "monitor-smoker")

	_, ok := m.Get("monitor-smoker")
	assert.True(t, ok)
}

func TestFromComponentHealth(t *testing.T) {
	now := time.Now()

	healthy := FromComponentHealth("monitor-smoker", component.HealthStatus{
		Healthy:   true,
		LastCheck: now,
		Uptime:    time.Minute,
	})
	assert.True(t, healthy.IsHealthy())
	require.NotNil(t, healthy.Metrics)
	assert.Equal(t, time.Minute, healthy.Metrics.Uptime)

	unhealthy := FromComponentHealth("monitor-smoker", component.HealthStatus{
		Healthy:    false,
		LastError:  "stream unavailable",
		ErrorCount: 3,
	})
	assert.True(t, unhealthy.IsUnhealthy())
	assert.Equal(t, "stream unavailable", unhealthy.Message)
	assert.Equal(t, 3, unhealthy.Metrics.ErrorCount)
}
