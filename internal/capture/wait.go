package capture

import (
	"context"
	"errors"
	"time"
)

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Optimistic runs fn with at most patience to finish. It returns true when fn
// succeeded and false when fn ran out of patience; any other failure,
// including cancellation of ctx itself, is returned as an error.
func Optimistic(ctx context.Context, patience time.Duration, fn func(context.Context) error) (bool, error) {
	wctx, cancel := context.WithTimeout(ctx, patience)
	defer cancel()

	err := fn(wctx)
	if err == nil {
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(wctx.Err(), context.DeadlineExceeded) {
		return false, nil
	}
	return false, err
}
