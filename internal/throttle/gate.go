// Package throttle bounds outbound provider calls by concurrency and duration.
package throttle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Gate admits at most a fixed number of concurrent calls and applies a per-call timeout.
// A zero Gate value is unbounded.
type Gate struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewGate creates a gate. maxConcurrent <= 0 disables the concurrency bound,
// timeout <= 0 disables the per-call deadline.
func NewGate(maxConcurrent int, timeout time.Duration) *Gate {
	g := &Gate{timeout: timeout}
	if maxConcurrent > 0 {
		g.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return g
}

// Do runs fn once a slot is free, under the per-call deadline.
// Waiting for a slot honors ctx cancellation.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}

	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return fmt.Errorf("acquire slot: %w", err)
		}
		defer g.sem.Release(1)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	return fn(ctx)
}
