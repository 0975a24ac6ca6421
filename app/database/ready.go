package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jpillora/backoff"
)

var readyBackoff = backoff.Backoff{
	Min:    500 * time.Millisecond,
	Max:    10 * time.Second,
	Factor: 2,
	Jitter: true,
}

// WaitReady pings the store until it answers, backing off between attempts.
func WaitReady(ctx context.Context, store Store, maxAttempts int) error {
	boff := readyBackoff

	for {
		err := store.Ping(ctx)
		if err == nil {
			return nil
		}

		if int(boff.Attempt())+1 >= maxAttempts {
			return fmt.Errorf("store not ready after %d attempts: %w", maxAttempts, err)
		}

		dur := boff.Duration()
		slog.Warn("Store not ready, retrying", "attempt", int(boff.Attempt()), "retry_in", dur, "error", err)

		timer := time.NewTimer(dur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
