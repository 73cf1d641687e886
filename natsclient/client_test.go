package natsclient

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test basic client creation
func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.NotNil(t, client)
	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
}

func TestNewClient_Options(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithName("smokewatch"),
		WithMaxReconnects(3),
		WithReconnectWait(time.Second),
		WithPingInterval(15*time.Second),
		WithTimeout(2*time.Second),
		WithDrainTimeout(5*time.Second),
		WithCircuitBreakerThreshold(10),
	)
	require.NoError(t, err)

	assert.Equal(t, "smokewatch", client.clientName)
	assert.Equal(t, 3, client.maxReconnects)
	assert.Equal(t, time.Second, client.reconnectWait)
	assert.Equal(t, 15*time.Second, client.pingInterval)
	assert.Equal(t, 2*time.Second, client.timeout)
	assert.Equal(t, 5*time.Second, client.drainTimeout)
	assert.Equal(t, int32(10), client.circuitThreshold)
}

func TestNewClient_SlogLogger(t *testing.T) {
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	client, err := NewClient("nats://localhost:4222", WithLogger(logger))
	require.NoError(t, err)
	assert.Same(t, logger, client.logger)

	// Adapter formats without panicking at every level
	logger.Printf("connected to %s", client.URL())
	logger.Errorf("lost connection: %v", ErrNotConnected)
	logger.Debugf("attempt %d", 1)
}

func TestWithLogger_NilFallsBack(t *testing.T) {
	client, err := NewClient("nats://localhost:4222", WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, client.logger)
}

// Test circuit breaker opens after failures
func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	client, err := NewClient("nats://invalid:4222")
	require.NoError(t, err)

	// Four failures should not open the circuit
	for i := 0; i < 4; i++ {
		client.recordFailure()
	}
	assert.NotEqual(t, StatusCircuitOpen, client.Status())

	// Fifth failure opens it
	client.recordFailure()
	assert.Equal(t, StatusCircuitOpen, client.Status())
	assert.Equal(t, int32(5), client.Failures())
}

// Test circuit breaker reset
func TestCircuitBreaker_Reset(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		client.recordFailure()
	}
	assert.Equal(t, StatusCircuitOpen, client.Status())

	client.resetCircuit()
	assert.Equal(t, int32(0), client.Failures())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.Equal(t, time.Second, client.Backoff())
}

func TestCircuitBreaker_BackoffCapped(t *testing.T) {
	client, err := NewClient("nats://invalid:4222",
		WithCircuitBreakerThreshold(1),
		WithMaxBackoff(4*time.Second),
	)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		client.recordFailure()
	}

	assert.LessOrEqual(t, client.Backoff(), 4*time.Second)
}

func TestConnect_CircuitOpenRejected(t *testing.T) {
	client, err := NewClient("nats://invalid:4222")
	require.NoError(t, err)

	client.setStatus(StatusCircuitOpen)

	err = client.Connect(context.Background())
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestPublish_NotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	err = client.Publish(context.Background(), "smokewatch.readings.smoker", []byte("{}"))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSubscribe_NotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	err = client.Subscribe(context.Background(), "smokewatch.readings.smoker", func(context.Context, []byte) {})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestEnsureStream_NotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	_, err = client.NewStreamSource(context.Background(), "SMOKEHOUSE", "smokewatch.readings.smoker", "smokewatch-monitor")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestWaitForConnection_Timeout(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = client.WaitForConnection(ctx)
	assert.Error(t, err)
}

func TestConnectionStatus_String(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
	assert.Equal(t, "circuit_open", StatusCircuitOpen.String())
	assert.Equal(t, "unknown", ConnectionStatus(99).String())
}

func TestClose_Idempotent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	require.NoError(t, client.Close(context.Background()))
	require.NoError(t, client.Close(context.Background()))
}
