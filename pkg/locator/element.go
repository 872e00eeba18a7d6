package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

// Element is a handle on one UI element. It holds only its key and a reference
// to the shared actor; every operation re-resolves live UI state.
type Element struct {
	key   Key
	actor Actor
}

// New creates an Element handle. The actor is not owned by the handle.
func New(actor Actor, key Key) Element {
	return Element{key: key, actor: actor}
}

// Key returns the handle's locator key.
func (e Element) Key() Key { return e.key }

// String describes the handle.
func (e Element) String() string { return Describe(e.key) }

// IsPresent reports whether the element can be found right now.
// Lookup failures yield false; the only error is core.ErrNoLocator.
func (e Element) IsPresent(ctx context.Context) (bool, error) {
	if err := Validate(e.key); err != nil {
		return false, err
	}
	return e.actor.Peek(ctx, e.key), nil
}

// Tap waits until the element is present and tappable, then taps it.
func (e Element) Tap(ctx context.Context) error {
	if err := Validate(e.key); err != nil {
		return err
	}
	if _, err := e.actor.WaitForTappable(ctx, e.key); err != nil {
		return notTappable(e.key, err)
	}
	if err := e.actor.Tap(ctx, e.key); err != nil {
		return err
	}
	logger.Info("STEP: Tapped on '%s'", e.key.Value())
	return nil
}

// TapAndWait taps the element and then pauses for delay.
func (e Element) TapAndWait(ctx context.Context, delay time.Duration) error {
	if err := e.Tap(ctx); err != nil {
		return err
	}
	return e.actor.Sleep(ctx, delay)
}

// Swipe waits for the element, swipes it in dir and waits for the resulting
// animations to settle before returning.
func (e Element) Swipe(ctx context.Context, dir Direction) error {
	if err := Validate(e.key); err != nil {
		return err
	}
	if _, err := e.actor.WaitForView(ctx, e.key); err != nil {
		return err
	}
	if err := e.actor.Swipe(ctx, e.key, dir); err != nil {
		return err
	}
	return e.actor.WaitForAnimations(ctx)
}

// View waits for the element and returns its projection.
func (e Element) View(ctx context.Context) (core.View, error) {
	if err := Validate(e.key); err != nil {
		return nil, err
	}
	return e.actor.WaitForView(ctx, e.key)
}

// Verify fails with core.ErrConditionNotMet carrying message when the element's
// presence differs from expected.
func (e Element) Verify(ctx context.Context, expected bool, message string) error {
	present, err := e.IsPresent(ctx)
	if err != nil {
		return err
	}
	if present != expected {
		return core.ErrConditionNotMet.WithMessage(message).WithDetails(map[string]interface{}{
			"element":  e.String(),
			"expected": expected,
			"present":  present,
		})
	}
	return nil
}

// ViewAs waits for e and narrows its projection to T.
// ok is false, with a nil error, when the element is some other kind of view.
func ViewAs[T core.View](ctx context.Context, e Element) (view T, ok bool, err error) {
	v, err := e.View(ctx)
	if err != nil {
		return view, false, err
	}
	view, ok = v.(T)
	return view, ok, nil
}

func notTappable(key Key, err error) error {
	if errors.Is(err, core.ErrWaitTimeout) {
		return core.ErrNotTappable.
			WithMessage(fmt.Sprintf("%s never became tappable", Describe(key))).
			WithCause(err)
	}
	return err
}
