// Package poll runs fixed-delay wait-for-completion loops.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is returned when every attempt ran without completion
var ErrExhausted = errors.New("poll attempts exhausted")

// Policy configures a poll loop
type Policy struct {
	// Interval is the minimum gap between two attempts
	Interval time.Duration
	// MaxAttempts is the attempt ceiling, at least one
	MaxAttempts int
	// Wait blocks for d or until ctx is done. Defaults to a timer wait.
	Wait func(ctx context.Context, d time.Duration) error
}

// Attempt runs one poll. done ends the loop successfully; a non-nil err ends
// it with that error. Transient failures should be reported as (zero, false, nil).
type Attempt[T any] func(ctx context.Context, attempt int) (value T, done bool, err error)

// Until calls fn at most p.MaxAttempts times, waiting p.Interval between
// calls, and returns the first completed value with the number of attempts made.
// No wait happens after the final attempt.
func Until[T any](ctx context.Context, p Policy, fn Attempt[T]) (T, int, error) {
	var zero T

	if p.MaxAttempts < 1 {
		return zero, 0, fmt.Errorf("poll: max attempts must be positive, got %d", p.MaxAttempts)
	}
	wait := p.Wait
	if wait == nil {
		wait = Sleep
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, attempt - 1, err
		}

		value, done, err := fn(ctx, attempt)
		if err != nil {
			return zero, attempt, err
		}
		if done {
			return value, attempt, nil
		}

		if attempt == p.MaxAttempts {
			break
		}
		if err := wait(ctx, p.Interval); err != nil {
			return zero, attempt, err
		}
	}

	return zero, p.MaxAttempts, ErrExhausted
}

// Sleep waits for d, returning early with ctx.Err() when ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
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
