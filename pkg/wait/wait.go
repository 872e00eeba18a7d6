// Package wait polls a condition until it holds or a deadline passes.
package wait

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// Default polling settings.
const (
	DefaultTimeout  = 20 * time.Second
	DefaultInterval = 100 * time.Millisecond
)

// Condition returns nil once it is satisfied.
// The returned error of the last attempt becomes the cause of a timeout.
type Condition func(ctx context.Context) error

// Poller retries a Condition at a fixed interval until Timeout elapses.
// The zero value uses DefaultTimeout and DefaultInterval.
type Poller struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Until blocks until cond succeeds. It returns core.ErrWaitTimeout wrapping the
// last condition error when the timeout (or ctx) expires first.
func (p Poller) Until(ctx context.Context, cond Condition) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	b := backoff.WithContext(backoff.NewConstantBackOff(p.interval()), ctx)
	err := backoff.Retry(func() error {
		return cond(ctx)
	}, b)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return core.ErrWaitTimeout.WithCause(err)
	}
	return err
}

// Once evaluates cond a single time bounded by the poller's timeout.
func (p Poller) Once(ctx context.Context, cond Condition) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	return cond(ctx)
}

// Sleep pauses for d, returning early with ctx's error if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p Poller) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

func (p Poller) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return DefaultInterval
}
