package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	r := NewRetrier(fastPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	r := NewRetrier(fastPolicy(), zap.NewNop())

	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	r := NewRetrier(fastPolicy(), zap.NewNop())

	sentinel := errors.New("persistent")
	calls := 0
	err := r.Do(context.Background(), func() error {
		calls++
		return sentinel
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 4, calls, "initial attempt plus three retries")
}

func TestDoStopsOnContextCancel(t *testing.T) {
	r := NewRetrier(Policy{
		MaxRetries:   10,
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   1.0,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := r.Do(ctx, func() error { return errors.New("always") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.MaxRetries = -1
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.InitialDelay = 0
	assert.Error(t, bad.Validate())

	bad = DefaultPolicy()
	bad.Multiplier = 0.5
	assert.Error(t, bad.Validate())
}

func TestDelayIsCappedAtMax(t *testing.T) {
	r := NewRetrier(Policy{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   10.0,
	}, zap.NewNop())

	for attempt := 0; attempt < 5; attempt++ {
		assert.LessOrEqual(t, r.delayFor(attempt), 4*time.Millisecond)
	}
}
