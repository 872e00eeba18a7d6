package baseline_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/baseline-runner/pkg/baseline"
	"github.com/devicelab-dev/baseline-runner/pkg/checkpoint"
	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/driver/fake"
	"github.com/devicelab-dev/baseline-runner/pkg/flow"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

var ctl = baseline.DefaultControls()

func newMachine(t *testing.T, app *fake.App, opts baseline.Options) *baseline.Machine {
	t.Helper()
	m, err := baseline.New(app, app, opts)
	require.NoError(t, err)
	return m
}

// stack shows key and hides it after depth taps.
func stack(app *fake.App, key locator.Key, depth int) {
	app.Show(key)
	remaining := depth
	app.OnTap(key, func() {
		remaining--
		if remaining <= 0 {
			app.Hide(key)
		}
	})
}

func statuses(r *baseline.Report) map[baseline.State]core.StepStatus {
	out := make(map[baseline.State]core.StepStatus, len(r.Steps))
	for _, s := range r.Steps {
		out[s.State] = s.Status
	}
	return out
}

func TestPlan_Golden(t *testing.T) {
	m := newMachine(t, fake.New(fake.Config{}), baseline.Options{})

	var buf bytes.Buffer
	require.NoError(t, baseline.RenderPlan(&buf, m.Plan()))

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "plan", buf.Bytes())
}

func TestPlan_RechecksReuseEarlierRows(t *testing.T) {
	m := newMachine(t, fake.New(fake.Config{}), baseline.Options{})
	rows := m.Plan()
	byState := make(map[baseline.State]baseline.Row, len(rows))
	for _, r := range rows {
		byState[r.State] = r
	}

	assert.Equal(t, byState[baseline.StateAlert].Gate, byState[baseline.StateAlertRecheck].Gate)
	assert.Equal(t, byState[baseline.StateAlert].Action, byState[baseline.StateAlertRecheck].Action)
	assert.Equal(t, byState[baseline.StateDialog].Gate, byState[baseline.StateDialogRecheck].Gate)
	assert.Equal(t, baseline.ModeDrain, byState[baseline.StateBackStack].Mode)
	assert.Equal(t, baseline.ModeDrain, byState[baseline.StateCloseStack].Mode)
	assert.Equal(t, baseline.StateBaseline, rows[len(rows)-1].Next)

	for i := 0; i < len(rows)-1; i++ {
		assert.Equal(t, rows[i+1].State, rows[i].Next, "row %s", rows[i].Step)
	}
}

func TestPlan_PermissionHookDescribed(t *testing.T) {
	m := newMachine(t, fake.New(fake.Config{}), baseline.Options{
		PermissionPending: func(context.Context) (bool, error) { return false, nil },
	})
	assert.Equal(t, "permission prompt pending", m.Plan()[0].Gate)
}

func TestRecover_ZeroDelaysDoNotPause(t *testing.T) {
	app := fake.New(fake.Config{})
	var zero time.Duration
	m := newMachine(t, app, baseline.Options{ShortDelay: &zero, MediumDelay: &zero})

	_, err := m.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{0, 0}, app.Sleeps())
	var gates []string
	for _, row := range m.Plan() {
		gates = append(gates, row.Gate)
	}
	assert.Contains(t, gates, `after 0s, id="pushNotificationDialogAllowButton" present`)
}

func TestRecover_CleanScreenSkipsEverything(t *testing.T) {
	app := fake.New(fake.Config{})
	m := newMachine(t, app, baseline.Options{})

	report, err := m.Recover(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Steps, 10)
	for _, s := range report.Steps {
		assert.Equal(t, core.StatusSkipped, s.Status, "step %s", s.State)
	}
	assert.Empty(t, app.Taps())
	assert.Equal(t, []time.Duration{baseline.DefaultShortDelay, baseline.DefaultMediumDelay}, app.Sleeps())
	assert.NotEmpty(t, report.RunID)
	assert.Nil(t, report.Err)
}

func TestRecover_BackDrainStopsAtDepth(t *testing.T) {
	for _, depth := range []int{1, 3, 7} {
		app := fake.New(fake.Config{})
		stack(app, ctl.Back, depth)
		m := newMachine(t, app, baseline.Options{})

		report, err := m.Recover(context.Background())
		require.NoError(t, err)

		step, ok := report.Step(baseline.StateBackStack)
		require.True(t, ok)
		assert.Equal(t, depth, step.Taps)
		assert.Equal(t, core.StatusPassed, step.Status)
		assert.Len(t, app.Taps(), depth)
		assert.False(t, app.Peek(context.Background(), ctl.Back))
	}
}

func TestRecover_CloseDrainAfterBack(t *testing.T) {
	app := fake.New(fake.Config{})
	stack(app, ctl.Back, 1)
	stack(app, ctl.Close, 2)
	m := newMachine(t, app, baseline.Options{})

	report, err := m.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"navigationBarBackButton",
		"navigationBarCloseButton",
		"navigationBarCloseButton",
	}, app.Taps())
	assert.Equal(t, 3, report.TotalTaps())
}

func TestRecover_RegeneratingBackButtonExceedsBudget(t *testing.T) {
	app := fake.New(fake.Config{})
	app.Show(ctl.Back)
	m := newMachine(t, app, baseline.Options{MaxDrainTaps: 4})

	report, err := m.Recover(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBudgetExceeded))

	var se *baseline.StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, baseline.StateBackStack, se.State)
	assert.Len(t, app.Taps(), 4)

	step, ok := report.Step(baseline.StateBackStack)
	require.True(t, ok)
	assert.Equal(t, core.StatusErrored, step.Status)
	_, ok = report.Step(baseline.StateCloseStack)
	assert.False(t, ok, "machine must stop at the failing step")
}

func TestRecover_OverallBudget(t *testing.T) {
	app := fake.New(fake.Config{})
	app.Show(ctl.GenderMale)
	stuck := baseline.OnboardingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	m := newMachine(t, app, baseline.Options{Budget: 50 * time.Millisecond, Onboarding: stuck})

	report, err := m.Recover(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrBudgetExceeded))

	var se *baseline.StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, baseline.StateOnboarding, se.State)
	assert.Equal(t, core.StatusErrored, statuses(report)[baseline.StateOnboarding])
}

func TestRecover_OnboardingWithoutFlowFails(t *testing.T) {
	app := fake.New(fake.Config{})
	app.Show(ctl.GenderFemale)
	m := newMachine(t, app, baseline.Options{})

	_, err := m.Recover(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingRequired))
}

func TestRecover_TapFailureIsNotRetried(t *testing.T) {
	app := fake.New(fake.Config{})
	app.Show(ctl.AlertOK)
	app.FailTap(ctl.AlertOK, core.ErrDeviceDisconnected)
	m := newMachine(t, app, baseline.Options{})

	report, err := m.Recover(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDeviceDisconnected))
	assert.Len(t, report.Steps, 2)
	assert.Equal(t, core.StatusErrored, statuses(report)[baseline.StateAlert])

	failed, ok := report.Failed()
	require.True(t, ok)
	assert.Equal(t, baseline.StateAlert, failed.State)
}

func TestRecover_PermissionHook(t *testing.T) {
	app := fake.New(fake.Config{})
	app.Show(ctl.PermissionAllow)
	app.OnTap(ctl.PermissionAllow, func() {
		app.Hide(ctl.PermissionAllow)
		app.RaiseSystemAlert()
	})
	m := newMachine(t, app, baseline.Options{
		PermissionPending: func(context.Context) (bool, error) { return true, nil },
	})

	report, err := m.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.StatusPassed, statuses(report)[baseline.StatePermission])
	assert.Equal(t, core.StatusSkipped, statuses(report)[baseline.StateTrailingPermission])
	assert.Equal(t, 1, app.Alerts())
	assert.False(t, app.SystemAlertUp())
	assert.Equal(t, []time.Duration{
		baseline.DefaultShortDelay,
		baseline.DefaultMediumDelay,
		baseline.DefaultMediumDelay,
	}, app.Sleeps())
}

const onboardingFlow = `
name: onboarding
---
- tapOnRandom:
    - id: onboardingFemaleUserButton
    - id: onboardingMaleUserButton
- tapOn:
    id: onboarding.birthday.continue
- waitForAnimationToEnd
`

// From the gender-selection screen the machine completes onboarding, logs
// the new user out and ends with no navigation controls on screen.
func TestRecover_FromGenderSelection(t *testing.T) {
	app := fake.New(fake.Config{})
	birthday := locator.Identifier("onboarding.birthday.continue")

	app.Show(ctl.GenderFemale)
	app.Show(ctl.GenderMale)
	app.Show(ctl.DefaultTab)
	pickGender := func() {
		app.Hide(ctl.GenderFemale)
		app.Hide(ctl.GenderMale)
		app.Show(birthday)
	}
	app.OnTap(ctl.GenderFemale, pickGender)
	app.OnTap(ctl.GenderMale, pickGender)
	app.OnTap(birthday, func() {
		app.Hide(birthday)
		app.Show(ctl.ProfileTab)
	})
	app.OnTap(ctl.ProfileTab, func() {
		app.Show(ctl.Back)
		app.Show(ctl.ProfileSettings)
	})
	app.OnTap(ctl.ProfileSettings, func() {
		app.Show(ctl.Logout)
		app.Signal(checkpoint.ProfileSettingsAppeared)
	})
	app.OnTap(ctl.Logout, func() {
		app.Hide(ctl.Logout)
		app.Hide(ctl.ProfileTab)
		app.Signal(checkpoint.SignInAppeared)
	})
	app.OnTap(ctl.Back, func() {
		app.Hide(ctl.Back)
		app.Hide(ctl.ProfileSettings)
	})

	f, err := flow.Parse([]byte(onboardingFlow), "onboarding.yaml")
	require.NoError(t, err)
	m := newMachine(t, app, baseline.Options{
		Onboarding: baseline.FlowOnboarding(flow.NewRunner(app, app), f),
	})

	report, err := m.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []baseline.State{baseline.StateOnboarding, baseline.StateProfileLogout}, report.Acted())

	taps := app.Taps()
	require.Len(t, taps, 7)
	assert.Contains(t, []string{"onboardingFemaleUserButton", "onboardingMaleUserButton"}, taps[0])
	assert.Equal(t, []string{
		"onboarding.birthday.continue",
		"profileTab",
		"profileScreenSettingsButton",
		"settingsScreenLogoutButton",
		"navigationBarBackButton",
		"productScannerTab",
	}, taps[1:])

	ctx := context.Background()
	loggedOut := !app.Peek(ctx, ctl.ProfileTab) || !app.Peek(ctx, ctl.Logout)
	assert.True(t, loggedOut)
	assert.False(t, app.Peek(ctx, ctl.Back))
	assert.False(t, app.Peek(ctx, ctl.Close))
	assert.Zero(t, app.Hub().Pending(checkpoint.SignInAppeared))
}

// An open dialog over a pending permission prompt: the dialog is cancelled
// before any navigation, the prompt is accepted last, and the run ends on
// the default tab.
func TestRecover_DialogBeforeNavigation(t *testing.T) {
	app := fake.New(fake.Config{})
	app.Show(ctl.DialogCancel)
	app.Show(ctl.ProfileTab)
	app.Show(ctl.DefaultTab)
	app.OnTap(ctl.DialogCancel, func() {
		app.Hide(ctl.DialogCancel)
		app.Show(ctl.Back)
		app.Show(ctl.PermissionAllow)
	})
	app.OnTap(ctl.Back, func() {
		app.Hide(ctl.Back)
		app.Hide(ctl.ProfileSettings)
	})
	app.OnTap(ctl.ProfileTab, func() {
		app.Show(ctl.Back)
		app.Show(ctl.ProfileSettings)
	})
	app.OnTap(ctl.ProfileSettings, func() {
		app.Signal(checkpoint.ProfileSettingsAppeared)
	})
	app.OnTap(ctl.PermissionAllow, func() {
		app.Hide(ctl.PermissionAllow)
		app.RaiseSystemAlert()
	})

	// The prompt only becomes reachable after the dialog is gone.
	pending := func(ctx context.Context) (bool, error) {
		return !app.Peek(ctx, ctl.DialogCancel) && app.Peek(ctx, ctl.PermissionAllow), nil
	}
	m := newMachine(t, app, baseline.Options{PermissionPending: pending})

	report, err := m.Recover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"addListDialogCancelButton",
		"navigationBarBackButton",
		"profileTab",
		"profileScreenSettingsButton",
		"navigationBarBackButton",
		"productScannerTab",
		"pushNotificationDialogAllowButton",
	}, app.Taps())
	assert.Equal(t, 1, app.Alerts())
	assert.False(t, app.SystemAlertUp())
	assert.Equal(t, []baseline.State{
		baseline.StateDialog,
		baseline.StateBackStack,
		baseline.StateProfileLogout,
		baseline.StateTrailingPermission,
	}, report.Acted())
}

func TestRecover_ProfileSettingsCheckpointMissing(t *testing.T) {
	app := fake.New(fake.Config{CheckpointTimeout: 20 * time.Millisecond})
	app.Show(ctl.ProfileTab)
	app.Show(ctl.ProfileSettings)
	m := newMachine(t, app, baseline.Options{})

	_, err := m.Recover(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCheckpointTimeout))
	assert.Equal(t, []string{"profileTab", "profileScreenSettingsButton"}, app.Taps(),
		"nothing past settings may run without the settings checkpoint")
}

// A settings checkpoint left over from an earlier test must not stand in for
// the one this run's settings tap causes.
func TestRecover_StaleCheckpointIsIgnored(t *testing.T) {
	app := fake.New(fake.Config{CheckpointTimeout: 20 * time.Millisecond})
	app.Show(ctl.ProfileTab)
	app.Show(ctl.ProfileSettings)
	app.Signal(checkpoint.ProfileSettingsAppeared)
	m := newMachine(t, app, baseline.Options{})

	report, err := m.Recover(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrCheckpointTimeout))
	assert.Equal(t, core.StatusErrored, statuses(report)[baseline.StateProfileLogout])
	assert.NotContains(t, app.Taps(), "productScannerTab")
	assert.Zero(t, app.Hub().Pending(checkpoint.ProfileSettingsAppeared))
}

// Sign-in only appears because logout was tapped; the wait must be armed
// before that tap to observe it.
func TestRecover_SignInCausedByLogoutTap(t *testing.T) {
	app := fake.New(fake.Config{CheckpointTimeout: 50 * time.Millisecond})
	app.Show(ctl.ProfileTab)
	app.Show(ctl.DefaultTab)
	app.OnTap(ctl.ProfileTab, func() { app.Show(ctl.ProfileSettings) })
	app.OnTap(ctl.ProfileSettings, func() {
		app.Show(ctl.Logout)
		app.Show(ctl.Back)
		app.Signal(checkpoint.ProfileSettingsAppeared)
	})
	app.OnTap(ctl.Logout, func() {
		app.Hide(ctl.Logout)
		app.Signal(checkpoint.SignInAppeared)
	})
	app.OnTap(ctl.Back, func() { app.Hide(ctl.Back) })
	m := newMachine(t, app, baseline.Options{})

	_, err := m.Recover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"profileTab",
		"profileScreenSettingsButton",
		"settingsScreenLogoutButton",
		"navigationBarBackButton",
		"productScannerTab",
	}, app.Taps())
}

func TestReport_Render(t *testing.T) {
	app := fake.New(fake.Config{})
	stack(app, ctl.Back, 2)
	m := newMachine(t, app, baseline.Options{})

	report, err := m.Recover(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf))
	out := buf.String()
	assert.Contains(t, out, "STEP")
	assert.Contains(t, out, "backStack")
	assert.Contains(t, out, "passed")
	assert.Contains(t, out, report.RunID+" reached baseline")

	_, failed := report.Failed()
	assert.False(t, failed, "skipped and passed steps are not failures")
}
