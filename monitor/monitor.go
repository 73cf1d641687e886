// Package monitor provides the per-sensor stream driver: it consumes raw
// payloads from a message source, decodes them, maintains the rolling
// window, and publishes stall decisions.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grillworks/smokewatch/component"
	"github.com/grillworks/smokewatch/config"
	"github.com/grillworks/smokewatch/detector"
	"github.com/grillworks/smokewatch/errors"
	"github.com/grillworks/smokewatch/metric"
	"github.com/grillworks/smokewatch/reading"
	"github.com/grillworks/smokewatch/window"
)

// Source delivers raw payloads one at a time. Next blocks until a payload
// is available or the context is cancelled.
type Source interface {
	Next(ctx context.Context) ([]byte, error)
}

// Publisher publishes decision and alert events
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Event is the decision record published after each evaluation
type Event struct {
	Sensor    string    `json:"sensor"`
	Stalled   bool      `json:"stalled"`
	Undecided bool      `json:"undecided"`
	Range     float64   `json:"range"`
	Threshold float64   `json:"threshold"`
	Window    []float64 `json:"window"`
	Timestamp string    `json:"timestamp"`
}

// Deps holds runtime dependencies for a sensor monitor
type Deps struct {
	Config          config.SensorConfig
	Source          Source
	Publisher       Publisher
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// Monitor consumes one sensor's readings sequentially. The rolling window
// and detector are owned by the run loop goroutine and never shared, so
// they need no locking.
type Monitor struct {
	cfg       config.SensorConfig
	source    Source
	publisher Publisher
	logger    *slog.Logger

	win *window.Rolling
	det *detector.Detector

	// Lifecycle management
	state     component.State
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	mu        sync.RWMutex

	// Flow counters
	messagesReceived atomic.Int64
	decodeFailures   atomic.Int64
	stalls           atomic.Int64
	lastError        atomic.Value // stores string
	lastActivity     atomic.Value // stores time.Time

	metrics *Metrics
	core    *metric.Metrics
}

// Ensure Monitor implements all required interfaces
var _ component.Discoverable = (*Monitor)(nil)
var _ component.LifecycleComponent = (*Monitor)(nil)

// New creates a new sensor monitor
func New(deps Deps) *Monitor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "monitor", "sensor", deps.Config.Name)
	}

	var metrics *Metrics
	var core *metric.Metrics
	if deps.MetricsRegistry != nil {
		metrics = newMetrics(deps.MetricsRegistry, deps.Config.Name)
		core = deps.MetricsRegistry.CoreMetrics()
	}

	m := &Monitor{
		cfg:       deps.Config,
		source:    deps.Source,
		publisher: deps.Publisher,
		logger:    logger,
		state:     component.StateCreated,
		metrics:   metrics,
		core:      core,
	}
	m.lastError.Store("")
	m.lastActivity.Store(time.Time{})
	return m
}

// Meta returns the component metadata
func (m *Monitor) Meta() component.Metadata {
	return component.Metadata{
		Name: "monitor-" + m.cfg.Name,
		Type: "monitor",
		Description: fmt.Sprintf("Stall monitor for sensor %s (window %d, threshold %.2f)",
			m.cfg.Name, m.cfg.Detector.WindowSize, m.cfg.Detector.Threshold),
		Version: "1.0.0",
	}
}

// Health returns the current health status of the component
func (m *Monitor) Health() component.HealthStatus {
	m.mu.RLock()
	state := m.state
	startTime := m.startTime
	m.mu.RUnlock()

	lastErr, _ := m.lastError.Load().(string)

	var uptime time.Duration
	if !startTime.IsZero() {
		uptime = time.Since(startTime)
	}

	return component.HealthStatus{
		Healthy:    state == component.StateStarted,
		LastCheck:  time.Now(),
		ErrorCount: int(m.decodeFailures.Load()),
		LastError:  lastErr,
		Uptime:     uptime,
	}
}

// DataFlow returns the current data flow metrics
func (m *Monitor) DataFlow() component.FlowMetrics {
	messages := m.messagesReceived.Load()
	failures := m.decodeFailures.Load()
	lastActivity, _ := m.lastActivity.Load().(time.Time)

	m.mu.RLock()
	startTime := m.startTime
	m.mu.RUnlock()

	var messagesPerSecond, errorRate float64
	if !startTime.IsZero() {
		if uptime := time.Since(startTime).Seconds(); uptime > 0 {
			messagesPerSecond = float64(messages) / uptime
		}
	}
	if messages > 0 {
		errorRate = float64(failures) / float64(messages)
	}

	return component.FlowMetrics{
		MessagesPerSecond: messagesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

// State returns the current lifecycle state
func (m *Monitor) State() component.State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Initialize validates dependencies and builds the window and detector
func (m *Monitor) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source == nil {
		return errors.WrapInvalid(fmt.Errorf("nil source"),
			"monitor", "Initialize", "source validation")
	}
	if m.cfg.Name == "" {
		return errors.WrapInvalid(fmt.Errorf("empty sensor name"),
			"monitor", "Initialize", "config validation")
	}
	if m.cfg.Detector.WindowSize < 1 {
		return errors.WrapInvalid(
			fmt.Errorf("window size %d must be positive", m.cfg.Detector.WindowSize),
			"monitor", "Initialize", "config validation")
	}
	if m.cfg.Detector.Threshold < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("threshold %f cannot be negative", m.cfg.Detector.Threshold),
			"monitor", "Initialize", "config validation")
	}

	m.win = window.NewRolling(m.cfg.Detector.WindowSize)
	m.det = detector.New(m.cfg.Detector)

	m.state = component.StateInitialized
	return nil
}

// Start begins consuming readings from the source
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running.Load() {
		return nil // Already running, idempotent
	}
	if m.state != component.StateInitialized {
		return errors.WrapInvalid(
			fmt.Errorf("cannot start from state %s", m.state),
			"monitor", "Start", "state validation")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	m.running.Store(true)
	m.state = component.StateStarted
	m.startTime = time.Now()

	go func() {
		defer close(m.done)
		m.run(runCtx)
	}()

	m.logger.Info("Monitor started",
		"sensor", m.cfg.Name,
		"stream", m.cfg.Stream,
		"subject", m.cfg.Subject,
		"window_size", m.cfg.Detector.WindowSize,
		"stall_threshold", m.cfg.Detector.Threshold)

	return nil
}

// Stop gracefully stops the monitor with the specified timeout
func (m *Monitor) Stop(timeout time.Duration) error {
	if !m.running.Load() {
		return nil
	}
	m.running.Store(false)

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	done := m.done
	m.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(timeout):
			return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
				"monitor", "Stop", "graceful shutdown")
		}
	}

	m.mu.Lock()
	if m.state != component.StateFailed {
		m.state = component.StateStopped
	}
	m.mu.Unlock()

	m.logger.Info("Monitor stopped", "sensor", m.cfg.Name)
	return nil
}

// run is the sequential consume loop. One message at a time: receive,
// decode, append, evaluate, publish.
func (m *Monitor) run(ctx context.Context) {
	for {
		payload, err := m.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}

			// A broken source cannot be recovered per-message
			failure := fmt.Errorf("%w: %v", errors.ErrStreamUnavailable, err)
			m.lastError.Store(failure.Error())
			m.logger.Error("Sensor stream unavailable",
				"sensor", m.cfg.Name,
				"error", failure)

			m.mu.Lock()
			m.state = component.StateFailed
			m.mu.Unlock()
			return
		}

		m.handleMessage(ctx, payload)
	}
}

// handleMessage processes one raw payload end to end
func (m *Monitor) handleMessage(ctx context.Context, payload []byte) {
	start := time.Now()

	m.messagesReceived.Add(1)
	if m.core != nil {
		m.core.RecordMessageReceived(m.cfg.Name)
	}

	r, err := reading.Decode(payload)
	if err != nil {
		// Per-message decode failures never stop the stream
		m.decodeFailures.Add(1)
		m.lastError.Store(err.Error())

		reason := errors.DecodeReason(err)
		if m.core != nil {
			m.core.RecordDecodeError(m.cfg.Name, reason)
			m.core.RecordMessageProcessed(m.cfg.Name, "rejected")
		}

		m.logger.Warn("Discarded undecodable payload",
			"sensor", m.cfg.Name,
			"reason", reason,
			"error", err)
		return
	}

	m.lastActivity.Store(time.Now())
	if m.metrics != nil {
		m.metrics.currentTemperature.Set(r.Value)
		m.metrics.lastActivity.Set(float64(time.Now().Unix()))
	}

	m.win.Append(r.Value)

	decision := m.det.Evaluate(m.win.Snapshot(), r.Timestamp)
	if m.metrics != nil {
		m.metrics.evaluations.Inc()
	}
	if m.core != nil {
		m.core.RecordWindow(m.cfg.Name, m.win.Len(), decision.Range)
	}

	m.publishDecision(ctx, decision)

	if m.core != nil {
		m.core.RecordMessageProcessed(m.cfg.Name, "processed")
		m.core.RecordProcessingDuration(m.cfg.Name, time.Since(start))
	}
}

// publishDecision emits the decision event, and an alert when stalled
func (m *Monitor) publishDecision(ctx context.Context, decision detector.Decision) {
	event := Event{
		Sensor:    m.cfg.Name,
		Stalled:   decision.Stalled,
		Undecided: decision.Undecided,
		Range:     decision.Range,
		Threshold: m.cfg.Detector.Threshold,
		Window:    decision.Window,
		Timestamp: decision.Timestamp,
	}

	data, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to encode decision event",
			"sensor", m.cfg.Name,
			"error", err)
		return
	}

	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, m.cfg.DecisionsSubject(), data); err != nil {
			m.logger.Warn("Failed to publish decision",
				"sensor", m.cfg.Name,
				"subject", m.cfg.DecisionsSubject(),
				"error", err)
		}
	}

	if !decision.Stalled {
		return
	}

	m.stalls.Add(1)
	if m.core != nil {
		m.core.RecordStall(m.cfg.Name)
	}

	m.logger.Warn("Stall detected",
		"sensor", m.cfg.Name,
		"range", decision.Range,
		"threshold", m.cfg.Detector.Threshold,
		"window", decision.Window,
		"timestamp", decision.Timestamp)

	if m.publisher != nil {
		if err := m.publisher.Publish(ctx, m.cfg.AlertsSubject(), data); err != nil {
			m.logger.Warn("Failed to publish alert",
				"sensor", m.cfg.Name,
				"subject", m.cfg.AlertsSubject(),
				"error", err)
		}
	}
}
