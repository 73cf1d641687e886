package feed

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grillworks/smokewatch/reading"
)

type capturePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *capturePublisher) PublishToStream(_ context.Context, _ string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	p.payloads = append(p.payloads, cp)
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func (p *capturePublisher) all() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.payloads...)
}

func TestProducer_RampThenPlateau(t *testing.T) {
	p := New(Deps{Config: Config{
		Subject:   "smokewatch.readings.smoker",
		Interval:  time.Second,
		StartTemp: 100,
		RampRate:  10,
		Plateau:   130,
		Jitter:    0,
		Unit:      "F",
	}})

	var values []float64
	for i := 0; i < 6; i++ {
		values = append(values, p.nextValue())
	}

	assert.Equal(t, []float64{110, 120, 130, 130, 130, 130}, values)
}

func TestProducer_PlateauJitterBounded(t *testing.T) {
	p := New(Deps{Config: Config{
		Subject:   "smokewatch.readings.smoker",
		Interval:  time.Second,
		StartTemp: 160,
		RampRate:  5,
		Plateau:   160,
		Jitter:    0.4,
	}})

	for i := 0; i < 100; i++ {
		v := p.nextValue()
		assert.InDelta(t, 160, v, 0.4)
	}
}

func TestProducer_EmitsDecodablePayloads(t *testing.T) {
	publisher := &capturePublisher{}
	p := New(Deps{
		Config: Config{
			Subject:   "smokewatch.readings.smoker",
			Interval:  5 * time.Millisecond,
			StartTemp: 200,
			RampRate:  1,
			Plateau:   225,
			Unit:      "F",
		},
		Publisher: publisher,
	})

	require.NoError(t, p.Initialize())
	require.NoError(t, p.Start(context.Background()))

	require.Eventually(t, func() bool { return publisher.count() >= 3 },
		5*time.Second, 5*time.Millisecond)
	require.NoError(t, p.Stop(2*time.Second))

	for _, data := range publisher.all() {
		r, err := reading.Decode(data)
		require.NoError(t, err)
		assert.Greater(t, r.Value, 200.0)

		_, err = time.Parse(time.RFC3339, r.Timestamp)
		assert.NoError(t, err)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(data, &raw))
		id, ok := raw["message_id"].(string)
		require.True(t, ok)
		_, err = uuid.Parse(id)
		assert.NoError(t, err)
	}
}

func TestProducer_InitializeValidation(t *testing.T) {
	publisher := &capturePublisher{}

	noSubject := New(Deps{Config: Config{Interval: time.Second}, Publisher: publisher})
	assert.Error(t, noSubject.Initialize())

	noInterval := New(Deps{Config: Config{Subject: "x"}, Publisher: publisher})
	assert.Error(t, noInterval.Initialize())

	noPublisher := New(Deps{Config: DefaultConfig()})
	assert.Error(t, noPublisher.Initialize())
}

func TestProducer_StopIdempotent(t *testing.T) {
	p := New(Deps{Config: DefaultConfig(), Publisher: &capturePublisher{}})
	require.NoError(t, p.Initialize())
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.Stop(2*time.Second))
	require.NoError(t, p.Stop(2*time.Second))
	assert.False(t, p.Health().Healthy)
}
