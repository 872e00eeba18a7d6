package flow

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/checkpoint"
	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

// StepError reports which step of a flow failed.
type StepError struct {
	Index int // 1-based
	Step  Step
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Index, e.Step.Describe(), e.Err)
}

// Unwrap returns the step's error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes flows through locator handles against one actor.
type Runner struct {
	actor  locator.Actor
	waiter checkpoint.Waiter
	rng    *rand.Rand
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRand makes random steps draw from r.
func WithRand(r *rand.Rand) RunnerOption {
	return func(rn *Runner) { rn.rng = r }
}

// NewRunner creates a runner. waiter serves waitForCheckpoint steps.
func NewRunner(actor locator.Actor, waiter checkpoint.Waiter, opts ...RunnerOption) *Runner {
	r := &Runner{actor: actor, waiter: waiter}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the steps of f in order. The first failing step aborts the
// flow unless it is optional.
func (r *Runner) Run(ctx context.Context, f *Flow) error {
	logger.Info("flow %s: %d steps", f.SourcePath, len(f.Steps))
	for i, step := range f.Steps {
		err := r.RunStep(ctx, step)
		if err == nil {
			continue
		}
		if step.IsOptional() && !core.IsConfigError(err) {
			logger.Warn("optional step %s failed: %v", step.Describe(), err)
			continue
		}
		return &StepError{Index: i + 1, Step: step, Err: err}
	}
	return nil
}

// RunStep executes a single step.
//
//nolint:gocyclo
func (r *Runner) RunStep(ctx context.Context, step Step) error {
	logger.Debug("run %s", step.Describe())

	switch s := step.(type) {
	case *TapOnStep:
		el, err := r.element(s.Selector)
		if err != nil {
			return err
		}
		if s.DelayMs > 0 {
			return el.TapAndWait(ctx, time.Duration(s.DelayMs)*time.Millisecond)
		}
		return el.Tap(ctx)

	case *TapOnRandomStep:
		if len(s.Options) == 0 {
			return core.ErrInvalidConfig.WithMessage("tapOnRandom has no options")
		}
		el, err := r.element(s.Options[r.intN(len(s.Options))])
		if err != nil {
			return err
		}
		return el.Tap(ctx)

	case *SwipeStep:
		el, err := r.element(s.Selector)
		if err != nil {
			return err
		}
		dir, err := locator.ParseDirection(s.Direction)
		if err != nil {
			return err
		}
		return el.Swipe(ctx, dir)

	case *TapCellStep:
		c, err := r.collection(s.Selector)
		if err != nil {
			return err
		}
		return c.TapCell(ctx, locator.IndexPath{Section: s.Section, Item: s.Item})

	case *TapRandomCellStep:
		c, err := r.collection(s.Selector)
		if err != nil {
			return err
		}
		path, ok, err := c.RandomIndexPath(ctx, s.Section)
		if err != nil {
			return err
		}
		if !ok {
			return core.ErrElementNotFound.WithMessage(
				fmt.Sprintf("no cells in section %d of %s", s.Section, s.Selector.Describe()))
		}
		return c.TapCell(ctx, path)

	case *InputTextStep:
		key, err := s.Selector.Key()
		if err != nil {
			return err
		}
		return locator.NewTextInput(r.actor, key).ClearAndEnterText(ctx, s.Text,
			locator.ExpectResult(s.Expected),
			locator.SettleDelay(time.Duration(s.SettleMs)*time.Millisecond))

	case *AssertVisibleStep:
		el, err := r.element(s.Selector)
		if err != nil {
			return err
		}
		if _, err := el.View(ctx); err != nil {
			msg := s.Message
			if msg == "" {
				msg = fmt.Sprintf("%s is not visible", s.Selector.Describe())
			}
			return core.ErrConditionNotMet.WithMessage(msg).WithCause(err)
		}
		return nil

	case *AssertNotVisibleStep:
		el, err := r.element(s.Selector)
		if err != nil {
			return err
		}
		msg := s.Message
		if msg == "" {
			msg = fmt.Sprintf("%s is visible", s.Selector.Describe())
		}
		return el.Verify(ctx, false, msg)

	case *WaitForCheckpointStep:
		cp, err := checkpoint.Parse(s.Name)
		if err != nil {
			return err
		}
		if r.waiter == nil {
			return core.ErrInvalidConfig.WithMessage("no checkpoint source configured")
		}
		if s.While != nil {
			return checkpoint.AwaitWhile(ctx, r.waiter, cp, func(ctx context.Context) error {
				return r.RunStep(ctx, s.While)
			})
		}
		return checkpoint.Await(ctx, r.waiter, cp, func(ctx context.Context) error {
			if s.Then == nil {
				return nil
			}
			return r.RunStep(ctx, s.Then)
		})

	case *WaitForAnimationToEndStep:
		return r.actor.WaitForAnimations(ctx)

	case *WaitStep:
		return r.actor.Sleep(ctx, time.Duration(s.Ms)*time.Millisecond)

	case *AcknowledgeSystemAlertStep:
		return r.actor.AcknowledgeSystemAlert(ctx)

	default:
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unsupported step type %T", step))
	}
}

func (r *Runner) element(sel Selector) (locator.Element, error) {
	key, err := sel.Key()
	if err != nil {
		return locator.Element{}, err
	}
	return locator.New(r.actor, key), nil
}

func (r *Runner) collection(sel Selector) (locator.Collection, error) {
	key, err := sel.Key()
	if err != nil {
		return locator.Collection{}, err
	}
	var opts []locator.CollectionOption
	if r.rng != nil {
		opts = append(opts, locator.WithRand(r.rng))
	}
	return locator.NewCollection(r.actor, key, opts...), nil
}

func (r *Runner) intN(n int) int {
	if r.rng != nil {
		return r.rng.IntN(n)
	}
	return rand.IntN(n)
}
