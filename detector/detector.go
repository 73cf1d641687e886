// Package detector implements the stall decision applied to a rolling
// window of temperature readings.
package detector

// Config holds the two stall-detection parameters
type Config struct {
	// WindowSize is the number of consecutive readings a decision requires
	WindowSize int `json:"window_size" yaml:"window_size"`
	// Threshold is the maximum spread (max - min) across a full window,
	// in the sensor's unit, that still counts as stalled
	Threshold float64 `json:"stall_threshold" yaml:"stall_threshold"`
}

const (
	// DefaultWindowSize is the default number of readings per decision
	DefaultWindowSize = 5
	// DefaultThreshold is the default maximum stalled spread
	DefaultThreshold = 1.0
)

// DefaultConfig returns the default detector parameters
func DefaultConfig() Config {
	return Config{
		WindowSize: DefaultWindowSize,
		Threshold:  DefaultThreshold,
	}
}

// Decision is the per-message output of the detector
type Decision struct {
	Stalled bool `json:"stalled"`
	// Undecided is true while the window has not yet filled; Stalled is
	// always false in that case
	Undecided bool      `json:"undecided,omitempty"`
	Range     float64   `json:"range"`
	Window    []float64 `json:"window"`
	Timestamp string    `json:"timestamp"`
}

// Detector evaluates window snapshots against a fixed configuration.
// It is a pure function of (snapshot, config) and holds no mutable state.
type Detector struct {
	cfg Config
}

// New creates a detector, substituting defaults for out-of-range parameters
func New(cfg Config) *Detector {
	if cfg.WindowSize < 1 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.Threshold < 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Detector{cfg: cfg}
}

// Config returns the detector's parameters
func (d *Detector) Config() Config {
	return d.cfg
}

// Evaluate decides whether the given window snapshot represents a stall.
// A window that has not yet reached WindowSize values is undecided and
// reported as not stalled. A full window is stalled when max-min is at or
// below the threshold; a spread exactly equal to the threshold counts as
// stalled (closed interval).
func (d *Detector) Evaluate(snapshot []float64, timestamp string) Decision {
	decision := Decision{
		Window:    snapshot,
		Timestamp: timestamp,
	}

	if len(snapshot) < d.cfg.WindowSize {
		decision.Undecided = true
		return decision
	}

	lo, hi := snapshot[0], snapshot[0]
	for _, v := range snapshot[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	decision.Range = hi - lo
	decision.Stalled = decision.Range <= d.cfg.Threshold
	return decision
}
