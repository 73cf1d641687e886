// Package window provides the fixed-capacity rolling window of recent
// sensor values that the stall detector evaluates.
package window

// Rolling is a fixed-capacity ring buffer of float64 values with strict
// FIFO eviction: appending to a full window discards the oldest value.
//
// A Rolling window is owned by exactly one goroutine (the monitor's consume
// loop processes messages strictly sequentially), so it is deliberately not
// locked. Callers needing concurrent access must wrap it themselves.
type Rolling struct {
	values   []float64
	capacity int
	head     int // next write position
	size     int
}

// NewRolling creates a rolling window with the given capacity.
// A capacity below 1 is clamped to 1.
func NewRolling(capacity int) *Rolling {
	if capacity < 1 {
		capacity = 1
	}
	return &Rolling{
		values:   make([]float64, capacity),
		capacity: capacity,
	}
}

// Append adds a value, evicting the oldest value first when full.
// Append always succeeds and runs in O(1).
func (r *Rolling) Append(v float64) {
	r.values[r.head] = v
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// Snapshot returns the held values in insertion order (oldest first).
// The returned slice is a copy; callers may retain or mutate it freely.
func (r *Rolling) Snapshot() []float64 {
	out := make([]float64, r.size)
	// When not yet full, values occupy [0, size); once full, the oldest
	// value sits at head (the next overwrite target).
	start := 0
	if r.size == r.capacity {
		start = r.head
	}
	for i := 0; i < r.size; i++ {
		out[i] = r.values[(start+i)%r.capacity]
	}
	return out
}

// Len returns the number of values currently held
func (r *Rolling) Len() int {
	return r.size
}

// Capacity returns the configured maximum number of values
func (r *Rolling) Capacity() int {
	return r.capacity
}

// IsFull reports whether the window holds exactly its capacity of values
func (r *Rolling) IsFull() bool {
	return r.size == r.capacity
}
