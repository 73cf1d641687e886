// Package alertfile provides a JSONL sink that persists stall alerts and
// decision events published on NATS subjects.
package alertfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grillworks/smokewatch/component"
	"github.com/grillworks/smokewatch/config"
	"github.com/grillworks/smokewatch/errors"
)

// Subscriber delivers messages published on a subject
type Subscriber interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
}

// Deps holds runtime dependencies for the alert file writer
type Deps struct {
	Config     config.AlertsConfig
	Subjects   []string
	Subscriber Subscriber
	Logger     *slog.Logger
}

// Writer subscribes to alert subjects and appends each event as one JSON
// line. Writes are buffered and flushed on an interval, when the buffer
// fills, and on Stop.
type Writer struct {
	directory  string
	filePrefix string
	bufferSize int
	subjects   []string
	subscriber Subscriber
	logger     *slog.Logger

	file   *os.File
	fileMu sync.Mutex

	buffer   [][]byte
	bufferMu sync.Mutex

	// Lifecycle management
	shutdown    chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	running     bool
	startTime   time.Time
	mu          sync.RWMutex
	lifecycleMu sync.Mutex
	wg          sync.WaitGroup

	messagesWritten atomic.Int64
	bytesWritten    atomic.Int64
	writeErrors     atomic.Int64
	lastActivity    atomic.Value // stores time.Time
}

// Ensure Writer implements all required interfaces
var _ component.Discoverable = (*Writer)(nil)
var _ component.LifecycleComponent = (*Writer)(nil)

// New creates a new alert file writer
func New(deps Deps) *Writer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "alert-writer")
	}

	bufferSize := deps.Config.BufferSize
	if bufferSize <= 0 {
		bufferSize = 100
	}

	filePrefix := deps.Config.FilePrefix
	if filePrefix == "" {
		filePrefix = "alerts"
	}

	w := &Writer{
		directory:  deps.Config.Directory,
		filePrefix: filePrefix,
		bufferSize: bufferSize,
		subjects:   deps.Subjects,
		subscriber: deps.Subscriber,
		logger:     logger,
		buffer:     make([][]byte, 0, bufferSize),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	w.lastActivity.Store(time.Time{})
	return w
}

// Path returns the output file path
func (w *Writer) Path() string {
	return filepath.Join(w.directory, w.filePrefix+".jsonl")
}

// Initialize creates the output directory
func (w *Writer) Initialize() error {
	if w.directory == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Writer", "Initialize", "directory is required")
	}
	if len(w.subjects) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig,
			"Writer", "Initialize", "no subjects configured")
	}

	if err := os.MkdirAll(w.directory, 0o755); err != nil {
		return errors.WrapFatal(err, "Writer", "Initialize", "create output directory")
	}

	return nil
}

// Start opens the output file and subscribes to alert subjects
func (w *Writer) Start(ctx context.Context) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Writer", "Start", "check running state")
	}
	if w.subscriber == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "Writer", "Start", "subscriber required")
	}

	file, err := os.OpenFile(w.Path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.WrapFatal(err, "Writer", "Start", "open output file")
	}

	w.fileMu.Lock()
	w.file = file
	w.fileMu.Unlock()

	for _, subject := range w.subjects {
		if err := w.subscriber.Subscribe(ctx, subject, w.handleMessage); err != nil {
			return errors.WrapTransient(err, "Writer", "Start",
				fmt.Sprintf("subscribe to %s", subject))
		}
	}

	w.wg.Add(1)
	go w.flushLoop()

	w.mu.Lock()
	w.running = true
	w.startTime = time.Now()
	w.mu.Unlock()

	w.logger.Info("Alert writer started",
		"subjects", w.subjects,
		"output_file", w.Path(),
		"buffer_size", w.bufferSize)

	return nil
}

// Stop flushes remaining events and closes the file
func (w *Writer) Stop(timeout time.Duration) error {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if !w.running {
		return nil
	}

	close(w.shutdown)

	waitCh := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
	case <-time.After(timeout):
		return errors.WrapTransient(fmt.Errorf("shutdown timeout after %v", timeout),
			"Writer", "Stop", "shutdown")
	}

	w.flush()

	w.fileMu.Lock()
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			w.logger.Warn("Failed to close alert file", "error", err, "path", w.Path())
		}
		w.file = nil
	}
	w.fileMu.Unlock()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.closeOnce.Do(func() {
		close(w.done)
	})

	return nil
}

// handleMessage buffers one incoming event
func (w *Writer) handleMessage(ctx context.Context, data []byte) {
	// Copy: the subscriber may reuse the slice
	msg := make([]byte, len(data))
	copy(msg, data)

	w.bufferMu.Lock()
	w.buffer = append(w.buffer, msg)
	shouldFlush := len(w.buffer) >= w.bufferSize
	w.bufferMu.Unlock()

	w.lastActivity.Store(time.Now())

	if shouldFlush {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.flush()
	}
}

// flushLoop periodically flushes the buffer
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// flush writes buffered events to the file, one JSON line each
func (w *Writer) flush() {
	w.bufferMu.Lock()
	if len(w.buffer) == 0 {
		w.bufferMu.Unlock()
		return
	}
	messages := w.buffer
	w.buffer = make([][]byte, 0, w.bufferSize)
	w.bufferMu.Unlock()

	w.fileMu.Lock()
	defer w.fileMu.Unlock()

	if w.file == nil {
		w.writeErrors.Add(int64(len(messages)))
		w.logger.Error("File handle is nil during flush", "messages_lost", len(messages))
		return
	}

	for _, msg := range messages {
		n, err := w.file.Write(append(msg, '\n'))
		if err != nil {
			w.writeErrors.Add(1)
			w.logger.Error("Failed to write alert to file", "error", err)
			continue
		}
		w.messagesWritten.Add(1)
		w.bytesWritten.Add(int64(n))
	}
}

// Meta returns component metadata
func (w *Writer) Meta() component.Metadata {
	return component.Metadata{
		Name:        "alert-writer",
		Type:        "output",
		Description: "JSONL sink for stall alerts and decision events",
		Version:     "1.0.0",
	}
}

// Health returns the current health status
func (w *Writer) Health() component.HealthStatus {
	w.mu.RLock()
	running := w.running
	startTime := w.startTime
	w.mu.RUnlock()

	w.fileMu.Lock()
	fileOpen := w.file != nil
	w.fileMu.Unlock()

	var uptime time.Duration
	if !startTime.IsZero() {
		uptime = time.Since(startTime)
	}

	return component.HealthStatus{
		Healthy:    running && fileOpen,
		LastCheck:  time.Now(),
		ErrorCount: int(w.writeErrors.Load()),
		Uptime:     uptime,
	}
}

// DataFlow returns current data flow metrics
func (w *Writer) DataFlow() component.FlowMetrics {
	written := w.messagesWritten.Load()
	errorCount := w.writeErrors.Load()
	lastActivity, _ := w.lastActivity.Load().(time.Time)

	var errorRate float64
	if written > 0 {
		errorRate = float64(errorCount) / float64(written)
	}

	return component.FlowMetrics{
		ErrorRate:    errorRate,
		LastActivity: lastActivity,
	}
}
