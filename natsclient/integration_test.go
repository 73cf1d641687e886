package natsclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TESTS") == "" {
		t.Skip("Skipping integration test; set INTEGRATION_TESTS to run")
	}
}

// TestIntegration_ConnectToRealNATS tests connection to a real NATS server
func TestIntegration_ConnectToRealNATS(t *testing.T) {
	requireIntegration(t)

	tc := NewTestClient(t)

	assert.True(t, tc.Client.IsHealthy())
	assert.Equal(t, StatusConnected, tc.Client.Status())

	rtt, err := tc.Client.RTT()
	assert.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

// TestIntegration_PublishSubscribe exercises core NATS round trip
func TestIntegration_PublishSubscribe(t *testing.T) {
	requireIntegration(t)

	tc := NewTestClient(t)
	ctx := context.Background()

	received := make(chan []byte, 1)
	err := tc.Client.Subscribe(ctx, "smokewatch.test", func(_ context.Context, data []byte) {
		received <- data
	})
	require.NoError(t, err)

	err = tc.Client.Publish(ctx, "smokewatch.test", []byte(`{"temperature":"225.5 F"}`))
	require.NoError(t, err)

	select {
	case data := <-received:
		assert.JSONEq(t, `{"temperature":"225.5 F"}`, string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

// TestIntegration_StreamSource exercises the durable pull consumer path
func TestIntegration_StreamSource(t *testing.T) {
	requireIntegration(t)

	tc := NewTestClient(t, WithJetStream())
	ctx := context.Background()

	_, err := tc.Client.EnsureStream(ctx, jetstream.StreamConfig{
		Name:     "SMOKEHOUSE",
		Subjects: []string{"smokewatch.readings.>"},
	})
	require.NoError(t, err)

	source, err := tc.Client.NewStreamSource(ctx, "SMOKEHOUSE", "smokewatch.readings.smoker", "smokewatch-test")
	require.NoError(t, err)

	payload := []byte(`{"temperature":"225.5 F","timestamp":"2025-01-01T12:00:00Z"}`)
	require.NoError(t, tc.Client.PublishToStream(ctx, "smokewatch.readings.smoker", payload))

	nextCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	data, err := source.Next(nextCtx)
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(data))
}

// TestIntegration_StreamSourceCancellation verifies Next honors context cancellation
func TestIntegration_StreamSourceCancellation(t *testing.T) {
	requireIntegration(t)

	tc := NewTestClient(t, WithJetStream())
	ctx := context.Background()

	_, err := tc.Client.EnsureStream(ctx, jetstream.StreamConfig{
		Name:     "EMPTY",
		Subjects: []string{"smokewatch.empty.>"},
	})
	require.NoError(t, err)

	source, err := tc.Client.NewStreamSource(ctx, "EMPTY", "smokewatch.empty.none", "smokewatch-cancel")
	require.NoError(t, err)

	nextCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err = source.Next(nextCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
