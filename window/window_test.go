package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolling_LengthNeverExceedsCapacity(t *testing.T) {
	w := NewRolling(5)

	for i := 0; i < 23; i++ {
		w.Append(float64(i))

		expected := i + 1
		if expected > 5 {
			expected = 5
		}
		assert.Equal(t, expected, w.Len())
		assert.Len(t, w.Snapshot(), expected)
	}
}

func TestRolling_FIFOEviction(t *testing.T) {
	w := NewRolling(3)

	for _, v := range []float64{1, 2, 3, 4, 5, 6, 7} {
		w.Append(v)
	}

	// Last N values in original relative order
	assert.Equal(t, []float64{5, 6, 7}, w.Snapshot())
}

func TestRolling_PartialFill(t *testing.T) {
	w := NewRolling(5)
	w.Append(100.0)
	w.Append(101.5)

	assert.Equal(t, []float64{100.0, 101.5}, w.Snapshot())
	assert.False(t, w.IsFull())
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, 5, w.Capacity())
}

func TestRolling_IsFull(t *testing.T) {
	w := NewRolling(2)

	assert.False(t, w.IsFull())
	w.Append(1)
	assert.False(t, w.IsFull())
	w.Append(2)
	assert.True(t, w.IsFull())
	w.Append(3)
	assert.True(t, w.IsFull())
}

func TestRolling_SnapshotIsACopy(t *testing.T) {
	w := NewRolling(3)
	w.Append(10)
	w.Append(20)

	snap := w.Snapshot()
	snap[0] = 99

	require.Equal(t, []float64{10, 20}, w.Snapshot())
}

func TestRolling_SnapshotDoesNotMutate(t *testing.T) {
	w := NewRolling(3)
	w.Append(1)
	w.Append(2)
	w.Append(3)

	first := w.Snapshot()
	second := w.Snapshot()
	assert.Equal(t, first, second)
	assert.Equal(t, 3, w.Len())
}

func TestRolling_CapacityClamped(t *testing.T) {
	w := NewRolling(0)
	w.Append(7)
	assert.Equal(t, 1, w.Capacity())
	assert.Equal(t, []float64{7}, w.Snapshot())
}
