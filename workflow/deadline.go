package workflow

import (
	"context"
	"time"
)

// RunWithDeadline executes fn under a wall-clock budget and returns
// ErrAnalysisTimeout if the budget is exceeded.
//
// Cancellation is cooperative: when the deadline fires, the context passed to
// fn is cancelled and the result is discarded — fn keeps running only until
// it next observes the cancellation, and whatever partial value it produces
// never reaches the caller. A budget of zero or less disables the deadline.
//
// This is the single timeout primitive of the orchestrator; everything above
// it sees one consistent contract regardless of how much of the pipeline was
// in flight when the clock ran out.
func RunWithDeadline[T any](ctx context.Context, budget time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if budget <= 0 {
		return fn(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		value, err := fn(runCtx)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		cancel()
		return zero, ErrAnalysisTimeout
	case <-ctx.Done():
		cancel()
		return zero, ctx.Err()
	}
}
