// Package harness adapts the recovery machine and locator handles to Go tests.
// Every failure is fatal: a test that cannot reach its baseline stops at once.
package harness

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/devicelab-dev/baseline-runner/pkg/baseline"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
)

// Session binds the actor shared by a test's handles to its recovery machine.
type Session struct {
	Actor   locator.Actor
	Machine *baseline.Machine
	// Timeout bounds each helper call; zero means no extra bound.
	Timeout time.Duration
}

// BeforeEach recovers the baseline and fails tb if it is not reached.
func (s *Session) BeforeEach(tb testing.TB) *baseline.Report {
	tb.Helper()
	ctx, cancel := s.context()
	defer cancel()

	report, err := s.Machine.Recover(ctx)
	if err != nil {
		tb.Fatalf("baseline not reached: %v", err)
		return report
	}
	return report
}

// Element returns a handle on key bound to the session's actor.
func (s *Session) Element(key locator.Key) locator.Element {
	return locator.New(s.Actor, key)
}

// Tap taps el and fails tb on error.
func (s *Session) Tap(tb testing.TB, el locator.Element) {
	tb.Helper()
	ctx, cancel := s.context()
	defer cancel()
	Must(tb, el.Tap(ctx))
}

// VerifyComponent fails tb with message unless el's presence equals expected.
func (s *Session) VerifyComponent(tb testing.TB, el locator.Element, expected bool, message string) {
	tb.Helper()
	ctx, cancel := s.context()
	defer cancel()
	Must(tb, el.Verify(ctx, expected, message))
}

// Must fails tb when err is non-nil.
func Must(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatalf("%v", err)
	}
}

// AssertPlan compares the machine's decision table with
// testdata/golden/<name>.golden. Run with -update to rewrite it.
func AssertPlan(t *testing.T, name string, m *baseline.Machine) {
	t.Helper()
	var buf bytes.Buffer
	Must(t, baseline.RenderPlan(&buf, m.Plan()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}

func (s *Session) context() (context.Context, context.CancelFunc) {
	if s.Timeout > 0 {
		return context.WithTimeout(context.Background(), s.Timeout)
	}
	return context.WithCancel(context.Background())
}
