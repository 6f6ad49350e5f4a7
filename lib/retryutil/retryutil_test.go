package retryutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEventualSuccess(t *testing.T) {
	var slept []time.Duration
	r := Config{
		Interval: time.Minute,
		Sleep:    func(d time.Duration) { slept = append(slept, d) },
	}

	calls := 0
	err := r.Do(context.Background(), "flaky", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{time.Minute, time.Minute}, slept)
}

func TestAttemptBudget(t *testing.T) {
	var slept []time.Duration
	r := Config{
		MaxAttempts: 3,
		Interval:    time.Second,
		Sleep:       func(d time.Duration) { slept = append(slept, d) },
	}

	boom := errors.New("down")
	calls := 0
	err := r.Do(context.Background(), "download", func() error {
		calls++
		return boom
	})

	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 3, calls)
	// no wait after the final attempt
	require.Equal(t, []time.Duration{time.Second, time.Second}, slept)
}

func TestFirstTrySuccess(t *testing.T) {
	r := Config{
		Interval: time.Hour,
		Sleep:    func(time.Duration) { t.Fatal("should not sleep") },
	}
	calls := 0
	err := r.Do(context.Background(), "ok", func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestCancelStopsUnlimitedRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	r := Config{Interval: time.Millisecond}
	calls := 0
	err := r.Do(ctx, "live", func() error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("still down")
	})

	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.GreaterOrEqual(t, calls, 2)
}
