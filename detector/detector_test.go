package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate_UndecidedBelowWindowSize(t *testing.T) {
	d := New(Config{WindowSize: 5, Threshold: 1.0})

	// Wildly varying values must still report not stalled while the
	// window is short of history.
	decision := d.Evaluate([]float64{0, 1000, -40, 225}, "t1")

	assert.False(t, decision.Stalled)
	assert.True(t, decision.Undecided)
	assert.Zero(t, decision.Range)
}

func TestEvaluate_InclusiveBoundary(t *testing.T) {
	d := New(Config{WindowSize: 5, Threshold: 1.0})

	decision := d.Evaluate([]float64{100.0, 100.0, 101.0, 100.0, 100.0}, "t2")

	assert.True(t, decision.Stalled, "range exactly at threshold counts as stalled")
	assert.False(t, decision.Undecided)
	assert.InDelta(t, 1.0, decision.Range, 1e-9)
}

func TestEvaluate_NotStalledAboveThreshold(t *testing.T) {
	d := New(Config{WindowSize: 5, Threshold: 1.0})

	decision := d.Evaluate([]float64{100.0, 102.0, 100.0, 100.0, 100.0}, "t3")

	assert.False(t, decision.Stalled)
	assert.InDelta(t, 2.0, decision.Range, 1e-9)
}

func TestEvaluate_StalledPlateau(t *testing.T) {
	d := New(Config{WindowSize: 5, Threshold: 1.0})

	decision := d.Evaluate([]float64{225, 225.2, 225.1, 225.0, 225.3}, "t4")

	assert.True(t, decision.Stalled)
	assert.InDelta(t, 0.3, decision.Range, 1e-9)
	assert.Equal(t, "t4", decision.Timestamp)
}

func TestEvaluate_ZeroThreshold(t *testing.T) {
	d := New(Config{WindowSize: 3, Threshold: 0})

	flat := d.Evaluate([]float64{200, 200, 200}, "t5")
	assert.True(t, flat.Stalled)

	moving := d.Evaluate([]float64{200, 200, 200.01}, "t6")
	assert.False(t, moving.Stalled)
}

func TestNew_DefaultsForInvalidConfig(t *testing.T) {
	d := New(Config{WindowSize: 0, Threshold: -3})

	assert.Equal(t, DefaultWindowSize, d.Config().WindowSize)
	assert.Equal(t, DefaultThreshold, d.Config().Threshold)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 5, cfg.WindowSize)
	assert.Equal(t, 1.0, cfg.Threshold)
}
