package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_AllAttemptsFail(t *testing.T) {
	cfg := Config{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}

	attempts := 0
	err := Do(context.Background(), cfg, func() error {
		attempts++
		return errors.New("persistent")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	sentinel := errors.New("bad input")

	attempts := 0
	err := Do(context.Background(), DefaultConfig(), func() error {
		attempts++
		return NonRetryable(sentinel)
	})

	assert.Error(t, err)
	assert.True(t, errors.Is(err, sentinel))
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		return errors.New("error")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Less(t, attempts, 5)
}

func TestDo_InvalidDelayBounds(t *testing.T) {
	cfg := Config{
		MaxAttempts:  2,
		InitialDelay: time.Second,
		MaxDelay:     time.Millisecond,
	}

	err := Do(context.Background(), cfg, func() error { return nil })
	assert.Error(t, err)
}
