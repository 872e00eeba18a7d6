package baseline

import (
	"context"
	"fmt"
	"io"
)

// State is a row of the recovery decision table.
type State string

// States in the order the machine visits them.
const (
	StatePermission         State = "permission"
	StateAlert              State = "alert"
	StateOnboarding         State = "onboarding"
	StateDialog             State = "dialog"
	StateBackStack          State = "backStack"
	StateCloseStack         State = "closeStack"
	StateAlertRecheck       State = "alertRecheck"
	StateDialogRecheck      State = "dialogRecheck"
	StateProfileLogout      State = "profileLogout"
	StateTrailingPermission State = "trailingPermission"
	StateBaseline           State = "baseline"
)

// Mode says how often a row's action may run.
type Mode int

// Modes.
const (
	// ModeOnce runs the action at most once when the gate holds.
	ModeOnce Mode = iota
	// ModeDrain re-checks the gate after every action until it no longer holds.
	ModeDrain
)

func (m Mode) String() string {
	if m == ModeDrain {
		return "drain"
	}
	return "once"
}

type gateFunc func(ctx context.Context) (bool, error)

type actionFunc func(ctx context.Context) error

// Row is one entry of the decision table: when the machine is in State and
// Gate holds, it runs Action (once or draining) and moves to Next. An absent
// gate moves to Next without acting.
type Row struct {
	Step   string
	State  State
	Gate   string
	Action string
	Mode   Mode
	Next   State

	gate   gateFunc
	action actionFunc
}

// RenderPlan writes the decision table in visiting order.
func RenderPlan(w io.Writer, rows []Row) error {
	for _, r := range rows {
		_, err := fmt.Fprintf(w, "%s. %s (%s)\n    gate:   %s\n    action: %s\n    next:   %s\n",
			r.Step, r.State, r.Mode, r.Gate, r.Action, r.Next)
		if err != nil {
			return err
		}
	}
	return nil
}
