package metric

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_Defaults(t *testing.T) {
	server := NewServer(0, "", NewMetricsRegistry())

	assert.Equal(t, 9090, server.port)
	assert.Equal(t, "/metrics", server.path)
	assert.Equal(t, "http://localhost:9090/metrics", server.Address())
}

func TestServer_StartRequiresRegistry(t *testing.T) {
	server := NewServer(9090, "/metrics", nil)

	err := server.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics registry")
}

func TestServer_StopWithoutStart(t *testing.T) {
	server := NewServer(9090, "/metrics", NewMetricsRegistry())
	assert.NoError(t, server.Stop())
}

func TestServer_StopRacingStart(t *testing.T) {
	server := NewServer(19719, "/metrics", NewMetricsRegistry())

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	// Stop repeatedly while Start is still publishing the server field;
	// the serve goroutine must exit cleanly rather than panic.
	deadline := time.After(5 * time.Second)
	for {
		require.NoError(t, server.Stop())

		select {
		case err := <-done:
			assert.NoError(t, err)
			return
		case <-deadline:
			t.Fatal("server did not stop")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
