package utils

import (
	"context"
	"time"
)

// WaitFor blocks for d or until ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Poll calls tick every interval until done reports true or ctx is done.
// tick may be nil.
func Poll(ctx context.Context, interval time.Duration, done func() bool, tick func()) error {
	for !done() {
		if tick != nil {
			tick()
		}
		if err := WaitFor(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}
