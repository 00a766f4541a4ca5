// Package poll runs a status check on a fixed interval until it settles.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrExhausted = errors.New("polling attempts exhausted")

// Policy bounds a polling loop. Zero MaxAttempts and zero Timeout mean no
// bound beyond the caller's context.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

const DefaultInterval = 2 * time.Second

// CheckFunc reports whether the polled job has settled. attempt starts at 1.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// Until calls check immediately and then once per interval. It returns nil
// once check reports done, check's error as-is, ErrExhausted when the attempt
// ceiling is reached, or the context error when ctx or the policy timeout ends.
func Until(ctx context.Context, p Policy, check CheckFunc) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return fmt.Errorf("%w after %d attempts", ErrExhausted, attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
