// Package checkpoint synchronizes test steps with asynchronous backend events
// signalled by the application's instrumentation.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// Checkpoint names a distinct backend event. The set is closed: only names
// present in the catalog are accepted from the instrumentation.
type Checkpoint string

// Checkpoints used by baseline recovery.
const (
	ProfileSettingsAppeared Checkpoint = "profileSettingVCDidAppeared"
	SignInAppeared          Checkpoint = "signInVCDidAppeared"
)

var (
	catalogMu sync.RWMutex
	catalog   = map[Checkpoint]struct{}{
		ProfileSettingsAppeared: {},
		SignInAppeared:          {},
	}
)

// Register adds application checkpoints to the catalog.
// Call it from package init so the catalog is fixed before any run starts.
func Register(names ...Checkpoint) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	for _, n := range names {
		if n != "" {
			catalog[n] = struct{}{}
		}
	}
}

// Parse returns the catalog entry for name.
func Parse(name string) (Checkpoint, error) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	cp := Checkpoint(name)
	if _, ok := catalog[cp]; !ok {
		return "", core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown checkpoint %q", name))
	}
	return cp, nil
}

// Known returns the catalog sorted by name.
func Known() []Checkpoint {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make([]Checkpoint, 0, len(catalog))
	for cp := range catalog {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Waiter blocks until a checkpoint is observed. Implementations own the timeout.
type Waiter interface {
	// WaitForCheckpoint consumes one occurrence of cp, latched or future.
	WaitForCheckpoint(ctx context.Context, cp Checkpoint) error
	// Expect arms a wait that only a later occurrence of cp satisfies.
	Expect(cp Checkpoint) Expectation
}

// Expectation is an armed checkpoint wait.
type Expectation interface {
	Wait(ctx context.Context) error
	// Cancel disarms an expectation that will not be waited on.
	Cancel()
}

// Await suspends until cp fires, then runs then synchronously before returning.
// then always runs strictly after the event; a missed checkpoint is reported
// as core.ErrCheckpointTimeout and then is not run.
func Await(ctx context.Context, w Waiter, cp Checkpoint, then func(context.Context) error) error {
	if err := w.WaitForCheckpoint(ctx, cp); err != nil {
		return missed(cp, err)
	}
	if then == nil {
		return nil
	}
	return then(ctx)
}

// AwaitWhile arms a wait for cp, runs action and returns once cp fires.
// Use it when action causes the event: only an occurrence signalled after
// the arm point counts, so a stale latched one cannot satisfy it.
func AwaitWhile(ctx context.Context, w Waiter, cp Checkpoint, action func(context.Context) error) error {
	exp := w.Expect(cp)
	defer exp.Cancel()

	if action != nil {
		if err := action(ctx); err != nil {
			return err
		}
	}
	if err := exp.Wait(ctx); err != nil {
		return missed(cp, err)
	}
	return nil
}

func missed(cp Checkpoint, err error) error {
	if errors.Is(err, core.ErrCheckpointTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.ErrCheckpointTimeout.
			WithMessage(fmt.Sprintf("checkpoint %q was not observed", cp)).
			WithCause(err)
	}
	return err
}
