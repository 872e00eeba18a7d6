package baseline

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// StepResult is the outcome of one decision table row.
// Passed means the gate held and the action ran; Skipped means the gate was absent.
type StepResult struct {
	Step     string
	State    State
	Status   core.StepStatus
	Taps     int // drain rows only
	Duration time.Duration
	Err      error
}

// Report describes one Recover call.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Steps    []StepResult
	Err      error
}

// Step returns the result recorded for state.
func (r *Report) Step(state State) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.State == state {
			return s, true
		}
	}
	return StepResult{}, false
}

// Acted returns the states whose action ran, in order.
func (r *Report) Acted() []State {
	var out []State
	for _, s := range r.Steps {
		if s.Status == core.StatusPassed {
			out = append(out, s.State)
		}
	}
	return out
}

// Failed returns the first step that did not succeed.
func (r *Report) Failed() (StepResult, bool) {
	for _, s := range r.Steps {
		if !s.Status.IsSuccess() {
			return s, true
		}
	}
	return StepResult{}, false
}

// TotalTaps sums drain taps over all steps.
func (r *Report) TotalTaps() int {
	n := 0
	for _, s := range r.Steps {
		n += s.Taps
	}
	return n
}

// Render writes the per-step outcome table.
func (r *Report) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "STEP\tSTATE\tSTATUS\tTAPS\tDURATION\n")
	for _, s := range r.Steps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.Step, s.State, s.Status, s.Taps, s.Duration.Round(time.Millisecond))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Err != nil {
		_, err := fmt.Fprintf(w, "\nrun %s failed after %s: %v\n", r.RunID, r.Duration.Round(time.Millisecond), r.Err)
		return err
	}
	_, err := fmt.Fprintf(w, "\nrun %s reached baseline in %s\n", r.RunID, r.Duration.Round(time.Millisecond))
	return err
}
