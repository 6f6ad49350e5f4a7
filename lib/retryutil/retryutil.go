package retryutil

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the parameters for the retry strategy. upstream outages
// here last minutes, not milliseconds, so the wait is a constant
// interval rather than a backoff curve.
type Config struct {
	// MaxAttempts caps the number of calls to fn. zero or negative
	// means retry without limit, which is what the live scrapers use.
	MaxAttempts int
	Interval    time.Duration
	// Sleep substitutes for the wait in tests. when nil the wait is
	// context-aware and a canceled context ends the loop.
	Sleep func(time.Duration)
}

// Do executes fn until it succeeds, the attempt budget runs out, or
// ctx is canceled.
func (r Config) Do(ctx context.Context, name string, fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if r.MaxAttempts > 0 && attempt >= r.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}

		slog.WarnContext(
			ctx, "retrying",
			"op", name,
			"attempt", attempt,
			"interval", r.Interval,
			"err", err,
		)
		if r.Sleep != nil {
			r.Sleep(r.Interval)
			continue
		}
		select {
		case <-time.After(r.Interval):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		}
	}
}
