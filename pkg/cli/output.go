package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/baseline"
	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

// printSetupStep prints a setup step with spinner-style prefix
func printSetupStep(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s⏳%s %s\n", color(colorCyan), color(colorReset), msg)
}

// printSetupSuccess prints a success message for setup
func printSetupSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "  %s✓%s %s\n", color(colorGreen), color(colorReset), msg)
}

// printSummary prints one line per recovery step and a totals row.
func printSummary(w io.Writer, r *baseline.Report) {
	tableWidth := 64
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  %-4s %-22s %-9s %6s %12s\n", "Step", "State", "Status", "Taps", "Duration")
	fmt.Fprintln(w, strings.Repeat("─", tableWidth))

	for _, s := range r.Steps {
		fmt.Fprintf(w, "  %-4s %-22s %s%-9s%s %6d %12s\n",
			s.Step, s.State, statusColor(s.Status), statusLabel(s.Status), color(colorReset),
			s.Taps, formatDuration(s.Duration))
	}

	fmt.Fprintln(w, strings.Repeat("─", tableWidth))
	outcome, c := "BASELINE", colorGreen
	if r.Err != nil {
		outcome, c = "FAILED", colorRed
	}
	fmt.Fprintf(w, "  %s%-27s%s %s%-9s%s %6d %12s\n",
		color(colorBold), "TOTAL", color(colorReset),
		color(c), outcome, color(colorReset),
		r.TotalTaps(), formatDuration(r.Duration))
	fmt.Fprintln(w, strings.Repeat("═", tableWidth))
	fmt.Fprintf(w, "  %srun %s%s\n", color(colorGray), r.RunID, color(colorReset))
	if r.Err != nil {
		if s, ok := r.Failed(); ok {
			fmt.Fprintf(w, "  %sstopped at step %s (%s)%s\n", color(colorRed), s.Step, s.State, color(colorReset))
		}
		fmt.Fprintf(w, "  %s%v%s\n", color(colorRed), r.Err, color(colorReset))
	}
}

func statusLabel(s core.StepStatus) string {
	switch s {
	case core.StatusPassed:
		return "✓ acted"
	case core.StatusSkipped:
		return "- absent"
	case core.StatusFailed, core.StatusErrored:
		return "✗ " + s.String()
	default:
		return s.String()
	}
}

func statusColor(s core.StepStatus) string {
	switch s {
	case core.StatusPassed:
		return color(colorGreen)
	case core.StatusSkipped:
		return color(colorCyan)
	case core.StatusFailed, core.StatusErrored:
		return color(colorRed)
	default:
		return ""
	}
}

// formatDuration shows milliseconds below one second, seconds otherwise.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm %ds", mins, secs)
}
