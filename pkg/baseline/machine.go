// Package baseline drives the application from an arbitrary screen back to the
// canonical baseline: logged out, onboarding dismissed, navigation stack empty,
// default tab selected. It is shared setup for every UI test.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/devicelab-dev/baseline-runner/pkg/checkpoint"
	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/flow"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

const tracerName = "github.com/devicelab-dev/baseline-runner/pkg/baseline"

// Defaults applied to zero Options fields.
const (
	DefaultShortDelay   = 1 * time.Second
	DefaultMediumDelay  = 2 * time.Second
	DefaultBudget       = 3 * time.Minute
	DefaultMaxDrainTaps = 25
)

// stateStart labels failures of the initial settle pause.
const stateStart State = "start"

// Onboarding completes the onboarding flow from its first screen.
type Onboarding interface {
	Run(ctx context.Context) error
}

// OnboardingFunc adapts a function to Onboarding.
type OnboardingFunc func(ctx context.Context) error

// Run calls f.
func (f OnboardingFunc) Run(ctx context.Context) error { return f(ctx) }

// FlowOnboarding runs f with r as the onboarding fast-forward.
func FlowOnboarding(r *flow.Runner, f *flow.Flow) Onboarding {
	return OnboardingFunc(func(ctx context.Context) error {
		return r.Run(ctx, f)
	})
}

// Options configures a Machine.
type Options struct {
	// Controls overrides the catalog; nil roles keep DefaultControls.
	Controls Controls
	// Onboarding completes onboarding when a gender entry point is showing.
	Onboarding Onboarding
	// PermissionPending reports whether the app has yet to show its
	// notification permission prompt. Defaults to checking for the allow control.
	PermissionPending func(ctx context.Context) (bool, error)

	// ShortDelay and MediumDelay are the pauses the steps take; nil uses the
	// default and zero means no pause.
	ShortDelay  *time.Duration
	MediumDelay *time.Duration
	// Budget bounds a whole Recover call.
	Budget time.Duration
	// MaxDrainTaps bounds each back/close drain loop.
	MaxDrainTaps int
}

// StepError carries the recovery step that failed.
type StepError struct {
	Step  string
	State State
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("recovery step %s (%s): %v", e.Step, e.State, e.Err)
}

// Unwrap returns the step's error.
func (e *StepError) Unwrap() error { return e.Err }

// Machine is the baseline recovery state machine. It shares the actor with
// the test that owns it and must not be run concurrently.
type Machine struct {
	actor  locator.Actor
	waiter checkpoint.Waiter
	opts   Options
	short  time.Duration
	medium time.Duration
	rows   []Row
	index  map[State]int
}

// New builds a machine over actor. waiter serves the checkpoints of the
// profile logout step.
func New(actor locator.Actor, waiter checkpoint.Waiter, opts Options) (*Machine, error) {
	if actor == nil {
		return nil, core.ErrMissingRequired.WithMessage("recovery machine needs an actor")
	}
	if waiter == nil {
		return nil, core.ErrMissingRequired.WithMessage("recovery machine needs a checkpoint waiter")
	}

	defaults := DefaultControls()
	for _, r := range Roles() {
		if p := opts.Controls.slot(r); *p == nil {
			*p = *defaults.slot(r)
		}
	}
	if err := opts.Controls.Validate(); err != nil {
		return nil, err
	}

	short, medium := DefaultShortDelay, DefaultMediumDelay
	if opts.ShortDelay != nil {
		short = *opts.ShortDelay
	}
	if opts.MediumDelay != nil {
		medium = *opts.MediumDelay
	}
	if short < 0 || medium < 0 {
		return nil, core.ErrInvalidConfig.WithMessage("recovery delays must not be negative")
	}
	opts.ShortDelay, opts.MediumDelay = &short, &medium
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.MaxDrainTaps <= 0 {
		opts.MaxDrainTaps = DefaultMaxDrainTaps
	}

	m := &Machine{actor: actor, waiter: waiter, opts: opts, short: short, medium: medium}
	m.rows = m.table()
	m.index = make(map[State]int, len(m.rows))
	for i, r := range m.rows {
		m.index[r.State] = i
	}
	return m, nil
}

// Options returns the effective options.
func (m *Machine) Options() Options { return m.opts }

// Plan returns the decision table in visiting order.
func (m *Machine) Plan() []Row {
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}

// Recover walks the decision table once. The returned report is never nil;
// the error is the first failing step's, wrapped in a *StepError.
func (m *Machine) Recover(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now()}

	ctx, cancel := context.WithTimeout(ctx, m.opts.Budget)
	defer cancel()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "baseline.recover",
		trace.WithAttributes(attribute.String("run.id", report.RunID)))
	defer span.End()

	log := logger.WithFields(map[string]interface{}{"run": report.RunID})
	log.Info("recovery started")

	err := m.run(ctx, report)
	report.Duration = time.Since(report.Started)
	report.Err = err
	recordRun(report)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.WithField("duration", report.Duration).Errorf("recovery failed: %v", err)
		return report, err
	}
	log.WithFields(map[string]interface{}{
		"duration": report.Duration,
		"taps":     report.TotalTaps(),
	}).Info("baseline reached")
	return report, nil
}

func (m *Machine) run(ctx context.Context, report *Report) error {
	if err := m.actor.Sleep(ctx, m.short); err != nil {
		return &StepError{Step: "0", State: stateStart, Err: m.budgetErr(ctx, err)}
	}

	state := m.rows[0].State
	for state != StateBaseline {
		row := m.rows[m.index[state]]
		res := m.step(ctx, row)
		report.Steps = append(report.Steps, res)
		if res.Err != nil {
			return &StepError{Step: row.Step, State: row.State, Err: res.Err}
		}
		state = row.Next
	}
	return nil
}

func (m *Machine) step(ctx context.Context, row Row) StepResult {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "baseline."+string(row.State),
		trace.WithAttributes(
			attribute.String("step", row.Step),
			attribute.String("mode", row.Mode.String()),
		))
	defer span.End()

	start := time.Now()
	acted, taps, err := m.exec(ctx, row)
	res := StepResult{
		Step:     row.Step,
		State:    row.State,
		Taps:     taps,
		Duration: time.Since(start),
	}
	switch {
	case err != nil:
		res.Err = m.budgetErr(ctx, err)
		res.Status = core.StatusFor(res.Err)
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	case acted:
		res.Status = core.StatusPassed
	default:
		res.Status = core.StatusSkipped
	}
	span.SetAttributes(
		attribute.String("status", res.Status.String()),
		attribute.Int("taps", taps),
	)
	recordStep(res)

	logger.WithFields(map[string]interface{}{
		"step":   row.State,
		"status": res.Status.String(),
		"taps":   taps,
	}).Info("recovery step")
	return res
}

func (m *Machine) exec(ctx context.Context, row Row) (acted bool, taps int, err error) {
	if row.Mode == ModeDrain {
		return m.drain(ctx, row)
	}
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}
	ok, err := row.gate(ctx)
	if err != nil || !ok {
		return false, 0, err
	}
	return true, 0, row.action(ctx)
}

// drain repeats the action while the gate holds, checking it again after every
// tap. A control that keeps coming back ends the run after MaxDrainTaps.
func (m *Machine) drain(ctx context.Context, row Row) (acted bool, taps int, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return taps > 0, taps, err
		}
		ok, err := row.gate(ctx)
		if err != nil {
			return taps > 0, taps, err
		}
		if !ok {
			return taps > 0, taps, nil
		}
		if taps >= m.opts.MaxDrainTaps {
			return true, taps, core.ErrBudgetExceeded.WithMessage(
				fmt.Sprintf("%s: %s after %d taps", row.State, row.Gate, taps))
		}
		if err := row.action(ctx); err != nil {
			return true, taps, err
		}
		taps++
	}
}

// budgetErr reports errors caused by the run deadline as ErrBudgetExceeded.
func (m *Machine) budgetErr(ctx context.Context, err error) error {
	if errors.Is(err, core.ErrBudgetExceeded) || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return err
	}
	return core.ErrBudgetExceeded.
		WithMessage(fmt.Sprintf("baseline not reached within %s", m.opts.Budget)).
		WithCause(err)
}

func (m *Machine) table() []Row {
	c := m.opts.Controls

	permission := Row{
		Step:   "1",
		State:  StatePermission,
		Gate:   "permission prompt pending",
		Action: fmt.Sprintf("wait %s, tap %s, acknowledge system alert", m.medium, c.PermissionAllow),
		Mode:   ModeOnce,
		Next:   StateAlert,
		gate:   m.permissionPending,
		action: m.seq(m.pause(m.medium), m.tap(c.PermissionAllow), m.acknowledgeAlert),
	}
	if m.opts.PermissionPending == nil {
		permission.Gate = presentDesc(c.PermissionAllow)
	}

	alert := Row{
		Step:   "2",
		State:  StateAlert,
		Gate:   presentDesc(c.AlertOK),
		Action: fmt.Sprintf("tap %s", c.AlertOK),
		Mode:   ModeOnce,
		Next:   StateOnboarding,
		gate:   m.present(c.AlertOK),
		action: m.tap(c.AlertOK),
	}
	onboarding := Row{
		Step:   "3",
		State:  StateOnboarding,
		Gate:   fmt.Sprintf("%s or %s present", c.GenderFemale, c.GenderMale),
		Action: "run onboarding flow to the home screen",
		Mode:   ModeOnce,
		Next:   StateDialog,
		gate:   m.anyPresent(c.GenderFemale, c.GenderMale),
		action: m.onboard,
	}
	dialog := Row{
		Step:   "4",
		State:  StateDialog,
		Gate:   presentDesc(c.DialogCancel),
		Action: fmt.Sprintf("tap %s", c.DialogCancel),
		Mode:   ModeOnce,
		Next:   StateBackStack,
		gate:   m.present(c.DialogCancel),
		action: m.tap(c.DialogCancel),
	}
	back := Row{
		Step:   "5",
		State:  StateBackStack,
		Gate:   presentDesc(c.Back),
		Action: fmt.Sprintf("tap %s", c.Back),
		Mode:   ModeDrain,
		Next:   StateCloseStack,
		gate:   m.present(c.Back),
		action: m.tap(c.Back),
	}
	closeStack := Row{
		Step:   "6",
		State:  StateCloseStack,
		Gate:   presentDesc(c.Close),
		Action: fmt.Sprintf("tap %s", c.Close),
		Mode:   ModeDrain,
		Next:   StateAlertRecheck,
		gate:   m.present(c.Close),
		action: m.tap(c.Close),
	}

	alertRecheck := alert
	alertRecheck.Step, alertRecheck.State, alertRecheck.Next = "7a", StateAlertRecheck, StateDialogRecheck
	dialogRecheck := dialog
	dialogRecheck.Step, dialogRecheck.State, dialogRecheck.Next = "7b", StateDialogRecheck, StateProfileLogout

	profile := Row{
		Step:  "8",
		State: StateProfileLogout,
		Gate:  presentDesc(c.ProfileTab),
		Action: fmt.Sprintf("tap %s, tap %s until %s, if %s present tap it until %s, tap %s, tap %s",
			c.ProfileTab, c.ProfileSettings, checkpoint.ProfileSettingsAppeared,
			c.Logout, checkpoint.SignInAppeared, c.Back, c.DefaultTab),
		Mode:   ModeOnce,
		Next:   StateTrailingPermission,
		gate:   m.present(c.ProfileTab),
		action: m.logout,
	}
	trailing := Row{
		Step:   "9",
		State:  StateTrailingPermission,
		Gate:   fmt.Sprintf("after %s, %s", m.medium, presentDesc(c.PermissionAllow)),
		Action: fmt.Sprintf("tap %s, acknowledge system alert", c.PermissionAllow),
		Mode:   ModeOnce,
		Next:   StateBaseline,
		gate:   m.after(m.medium, m.present(c.PermissionAllow)),
		action: m.seq(m.tap(c.PermissionAllow), m.acknowledgeAlert),
	}

	return []Row{
		permission, alert, onboarding, dialog, back, closeStack,
		alertRecheck, dialogRecheck, profile, trailing,
	}
}

func presentDesc(k locator.Key) string {
	return fmt.Sprintf("%s present", locator.Describe(k))
}

func (m *Machine) el(k locator.Key) locator.Element {
	return locator.New(m.actor, k)
}

func (m *Machine) present(k locator.Key) gateFunc {
	return m.el(k).IsPresent
}

func (m *Machine) anyPresent(keys ...locator.Key) gateFunc {
	return func(ctx context.Context) (bool, error) {
		for _, k := range keys {
			ok, err := m.el(k).IsPresent(ctx)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
}

func (m *Machine) after(d time.Duration, g gateFunc) gateFunc {
	return func(ctx context.Context) (bool, error) {
		if err := m.actor.Sleep(ctx, d); err != nil {
			return false, err
		}
		return g(ctx)
	}
}

func (m *Machine) permissionPending(ctx context.Context) (bool, error) {
	if m.opts.PermissionPending != nil {
		return m.opts.PermissionPending(ctx)
	}
	return m.el(m.opts.Controls.PermissionAllow).IsPresent(ctx)
}

func (m *Machine) tap(k locator.Key) actionFunc {
	return m.el(k).Tap
}

func (m *Machine) pause(d time.Duration) actionFunc {
	return func(ctx context.Context) error {
		return m.actor.Sleep(ctx, d)
	}
}

func (m *Machine) acknowledgeAlert(ctx context.Context) error {
	return m.actor.AcknowledgeSystemAlert(ctx)
}

func (m *Machine) seq(actions ...actionFunc) actionFunc {
	return func(ctx context.Context) error {
		for _, a := range actions {
			if err := a(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func (m *Machine) onboard(ctx context.Context) error {
	if m.opts.Onboarding == nil {
		return core.ErrMissingRequired.WithMessage("onboarding screen is showing but no onboarding flow is configured")
	}
	return m.opts.Onboarding.Run(ctx)
}

// logout opens profile settings and signs out if a user is signed in, then
// returns to the default tab. Each tap that opens a screen is armed on that
// screen's checkpoint first, so only events caused by this run count.
func (m *Machine) logout(ctx context.Context) error {
	c := m.opts.Controls
	if err := m.el(c.ProfileTab).Tap(ctx); err != nil {
		return err
	}
	if err := checkpoint.AwaitWhile(ctx, m.waiter, checkpoint.ProfileSettingsAppeared, m.el(c.ProfileSettings).Tap); err != nil {
		return err
	}

	signedIn, err := m.el(c.Logout).IsPresent(ctx)
	if err != nil {
		return err
	}
	if signedIn {
		if err := checkpoint.AwaitWhile(ctx, m.waiter, checkpoint.SignInAppeared, m.el(c.Logout).Tap); err != nil {
			return err
		}
		if err := m.el(c.Back).Tap(ctx); err != nil {
			return err
		}
		if err := m.actor.Sleep(ctx, m.medium); err != nil {
			return err
		}
	} else if err := m.el(c.Back).Tap(ctx); err != nil {
		return err
	}
	return m.el(c.DefaultTab).Tap(ctx)
}
