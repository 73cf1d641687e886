// Package feed provides a synthetic smoker-temperature producer used for
// demos and end-to-end testing. It emits readings that ramp up and then
// plateau, which reliably exercises stall detection downstream.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/grillworks/smokewatch/component"
	"github.com/grillworks/smokewatch/errors"
)

// StreamPublisher publishes payloads to a JetStream subject
type StreamPublisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// Config controls the synthetic temperature profile
type Config struct {
	Subject   string        `json:"subject" yaml:"subject"`
	Interval  time.Duration `json:"interval" yaml:"interval"`
	StartTemp float64       `json:"start_temp" yaml:"start_temp"`
	RampRate  float64       `json:"ramp_rate" yaml:"ramp_rate"`     // degrees per reading while climbing
	Plateau   float64       `json:"plateau" yaml:"plateau"`         // temperature where the stall begins
	Jitter    float64       `json:"jitter" yaml:"jitter"`           // max random wobble during the plateau
	Unit      string        `json:"unit,omitempty" yaml:"unit,omitempty"` // suffix appended to the value
}

// DefaultConfig returns a profile that ramps from ambient to a classic
// brisket stall around 160F
func DefaultConfig() Config {
	return Config{
		Subject:   "smokewatch.readings.smoker",
		Interval:  time.Second,
		StartTemp: 70,
		RampRate:  2.5,
		Plateau:   160,
		Jitter:    0.4,
		Unit:      "F",
	}
}

// payload is the wire format of one synthetic reading
type payload struct {
	MessageID   string `json:"message_id"`
	Temperature string `json:"temperature"`
	Timestamp   string `json:"timestamp"`
}

// Deps holds runtime dependencies for the producer
type Deps struct {
	Config    Config
	Publisher StreamPublisher
	Logger    *slog.Logger
}

// Producer emits synthetic readings on a fixed interval
type Producer struct {
	cfg       Config
	publisher StreamPublisher
	logger    *slog.Logger

	current float64

	// Lifecycle management
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool
	startTime time.Time
	mu        sync.RWMutex

	published atomic.Int64
	failures  atomic.Int64
}

// Ensure Producer implements all required interfaces
var _ component.Discoverable = (*Producer)(nil)
var _ component.LifecycleComponent = (*Producer)(nil)

// New creates a new synthetic reading producer
func New(deps Deps) *Producer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "feed")
	}

	return &Producer{
		cfg:       deps.Config,
		publisher: deps.Publisher,
		logger:    logger,
		current:   deps.Config.StartTemp,
	}
}

// Meta returns the component metadata
func (p *Producer) Meta() component.Metadata {
	return component.Metadata{
		Name: "feed",
		Type: "feed",
		Description: fmt.Sprintf("Synthetic reading producer on %s (plateau at %.1f)",
			p.cfg.Subject, p.cfg.Plateau),
		Version: "1.0.0",
	}
}

// Health returns the current health status
func (p *Producer) Health() component.HealthStatus {
	var uptime time.Duration
	p.mu.RLock()
	if !p.startTime.IsZero() {
		uptime = time.Since(p.startTime)
	}
	p.mu.RUnlock()

	return component.HealthStatus{
		Healthy:    p.running.Load(),
		LastCheck:  time.Now(),
		ErrorCount: int(p.failures.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (p *Producer) DataFlow() component.FlowMetrics {
	published := p.published.Load()
	failures := p.failures.Load()

	p.mu.RLock()
	startTime := p.startTime
	p.mu.RUnlock()

	var perSecond, errorRate float64
	if !startTime.IsZero() {
		if uptime := time.Since(startTime).Seconds(); uptime > 0 {
			perSecond = float64(published) / uptime
		}
	}
	if published > 0 {
		errorRate = float64(failures) / float64(published)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		ErrorRate:         errorRate,
	}
}

// Initialize validates the producer configuration
func (p *Producer) Initialize() error {
	if p.cfg.Subject == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "feed", "Initialize", "subject is required")
	}
	if p.cfg.Interval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "feed", "Initialize", "interval must be positive")
	}
	if p.publisher == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "feed", "Initialize", "publisher required")
	}
	return nil
}

// Start begins emitting readings until the context is cancelled
func (p *Producer) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running.Store(true)
	p.startTime = time.Now()

	go func() {
		defer close(p.done)
		p.run(runCtx)
	}()

	p.logger.Info("Feed started",
		"subject", p.cfg.Subject,
		"interval", p.cfg.Interval,
		"start_temp", p.cfg.StartTemp,
		"plateau", p.cfg.Plateau)

	return nil
}

// Stop stops the producer
func (p *Producer) Stop(timeout time.Duration) error {
	if !p.running.Load() {
		return nil
	}
	p.running.Store(false)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	done := p.done
	p.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-time.After(timeout):
			return errors.WrapTransient(fmt.Errorf("stop timeout after %v", timeout),
				"feed", "Stop", "graceful shutdown")
		}
	}

	return nil
}

func (p *Producer) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.emit(ctx)
		}
	}
}

func (p *Producer) emit(ctx context.Context) {
	value := p.nextValue()

	data, err := json.Marshal(payload{
		MessageID:   uuid.NewString(),
		Temperature: p.formatTemperature(value),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.failures.Add(1)
		return
	}

	if err := p.publisher.PublishToStream(ctx, p.cfg.Subject, data); err != nil {
		p.failures.Add(1)
		p.logger.Warn("Failed to publish reading",
			"subject", p.cfg.Subject,
			"error", err)
		return
	}

	p.published.Add(1)
	p.logger.Debug("Published reading", "temperature", value)
}

// nextValue advances the profile: climb at RampRate until the plateau,
// then wobble within Jitter of it.
func (p *Producer) nextValue() float64 {
	if p.current < p.cfg.Plateau {
		p.current += p.cfg.RampRate
		if p.current > p.cfg.Plateau {
			p.current = p.cfg.Plateau
		}
		return p.current
	}

	wobble := 0.0
	if p.cfg.Jitter > 0 {
		wobble = (rand.Float64()*2 - 1) * p.cfg.Jitter
	}
	return p.cfg.Plateau + wobble
}

func (p *Producer) formatTemperature(value float64) string {
	if p.cfg.Unit == "" {
		return fmt.Sprintf("%.1f", value)
	}
	return fmt.Sprintf("%.1f %s", value, p.cfg.Unit)
}
