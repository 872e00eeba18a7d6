package flow

import (
	"fmt"
	"strings"
)

// StepType represents the type of step.
type StepType string

// Step type constants.
const (
	// Interaction
	StepTapOn         StepType = "tapOn"
	StepTapOnRandom   StepType = "tapOnRandom"
	StepSwipe         StepType = "swipe"
	StepTapCell       StepType = "tapCell"
	StepTapRandomCell StepType = "tapRandomCell"

	// Text
	StepInputText StepType = "inputText"

	// Assertions
	StepAssertVisible    StepType = "assertVisible"
	StepAssertNotVisible StepType = "assertNotVisible"

	// Synchronization
	StepWaitForCheckpoint      StepType = "waitForCheckpoint"
	StepWaitForAnimationToEnd  StepType = "waitForAnimationToEnd"
	StepWait                   StepType = "wait"
	StepAcknowledgeSystemAlert StepType = "acknowledgeSystemAlert"
)

// Step is the interface for all flow steps.
type Step interface {
	Type() StepType
	IsOptional() bool
	Describe() string
}

// BaseStep contains common fields for all steps.
type BaseStep struct {
	StepType StepType `yaml:"-"`
	Optional bool     `yaml:"optional"`
}

// Type returns the step type.
func (b *BaseStep) Type() StepType { return b.StepType }

// IsOptional returns whether the step is optional.
func (b *BaseStep) IsOptional() bool { return b.Optional }

// Describe returns a human-readable description.
func (b *BaseStep) Describe() string { return string(b.StepType) }

// ============================================
// Interaction Steps
// ============================================

// TapOnStep taps on an element, optionally pausing afterwards.
type TapOnStep struct {
	BaseStep          `yaml:",inline"`
	Selector Selector `yaml:",inline"`
	DelayMs  int      `yaml:"delay"`
}

// Describe returns a human-readable description.
func (s *TapOnStep) Describe() string {
	return fmt.Sprintf("tapOn %s", s.Selector.Describe())
}

// TapOnRandomStep taps one of several elements chosen uniformly at random.
type TapOnRandomStep struct {
	BaseStep           `yaml:",inline"`
	Options []Selector `yaml:"options"`
}

// Describe returns a human-readable description.
func (s *TapOnRandomStep) Describe() string {
	parts := make([]string, len(s.Options))
	for i, o := range s.Options {
		parts[i] = o.Describe()
	}
	return fmt.Sprintf("tapOnRandom [%s]", strings.Join(parts, ", "))
}

// SwipeStep swipes an element.
type SwipeStep struct {
	BaseStep           `yaml:",inline"`
	Selector  Selector `yaml:",inline"`
	Direction string   `yaml:"direction"`
}

// Describe returns a human-readable description.
func (s *SwipeStep) Describe() string {
	return fmt.Sprintf("swipe %s %s", s.Direction, s.Selector.Describe())
}

// TapCellStep taps a cell of a collection or table.
type TapCellStep struct {
	BaseStep          `yaml:",inline"`
	Selector Selector `yaml:",inline"`
	Section  int      `yaml:"section"`
	Item     int      `yaml:"item"`
}

// Describe returns a human-readable description.
func (s *TapCellStep) Describe() string {
	return fmt.Sprintf("tapCell [%d, %d] in %s", s.Section, s.Item, s.Selector.Describe())
}

// TapRandomCellStep taps a random cell of one section.
type TapRandomCellStep struct {
	BaseStep          `yaml:",inline"`
	Selector Selector `yaml:",inline"`
	Section  int      `yaml:"section"`
}

// Describe returns a human-readable description.
func (s *TapRandomCellStep) Describe() string {
	return fmt.Sprintf("tapRandomCell section %d in %s", s.Section, s.Selector.Describe())
}

// ============================================
// Text Steps
// ============================================

// InputTextStep clears a field and types into it.
type InputTextStep struct {
	BaseStep          `yaml:",inline"`
	Selector Selector `yaml:",inline"`
	Text     string   `yaml:"text"`
	Expected string   `yaml:"expected"` // verified after entry when set
	SettleMs int      `yaml:"settle"`
}

// Describe returns a human-readable description.
func (s *InputTextStep) Describe() string {
	return fmt.Sprintf("inputText %q into %s", s.Text, s.Selector.Describe())
}

// ============================================
// Assertion Steps
// ============================================

// AssertVisibleStep waits for an element to be visible.
type AssertVisibleStep struct {
	BaseStep          `yaml:",inline"`
	Selector Selector `yaml:",inline"`
	Message  string   `yaml:"message"`
}

// Describe returns a human-readable description.
func (s *AssertVisibleStep) Describe() string {
	return fmt.Sprintf("assertVisible %s", s.Selector.Describe())
}

// AssertNotVisibleStep checks that an element is absent right now.
type AssertNotVisibleStep struct {
	BaseStep          `yaml:",inline"`
	Selector Selector `yaml:",inline"`
	Message  string   `yaml:"message"`
}

// Describe returns a human-readable description.
func (s *AssertNotVisibleStep) Describe() string {
	return fmt.Sprintf("assertNotVisible %s", s.Selector.Describe())
}

// ============================================
// Synchronization Steps
// ============================================

// WaitForCheckpointStep waits for a backend checkpoint. Then runs after the
// checkpoint arrives; While runs after the wait is armed and is expected to
// cause it. At most one of them is set.
type WaitForCheckpointStep struct {
	BaseStep     `yaml:",inline"`
	Name  string `yaml:"name"`
	Then  Step   `yaml:"-"`
	While Step   `yaml:"-"`
}

// Describe returns a human-readable description.
func (s *WaitForCheckpointStep) Describe() string {
	if s.While != nil {
		return fmt.Sprintf("waitForCheckpoint %s while %s", s.Name, s.While.Describe())
	}
	if s.Then != nil {
		return fmt.Sprintf("waitForCheckpoint %s then %s", s.Name, s.Then.Describe())
	}
	return fmt.Sprintf("waitForCheckpoint %s", s.Name)
}

// WaitForAnimationToEndStep waits until the screen stops changing.
type WaitForAnimationToEndStep struct {
	BaseStep `yaml:",inline"`
}

// WaitStep pauses for a fixed time.
type WaitStep struct {
	BaseStep `yaml:",inline"`
	Ms int `yaml:"ms"`
}

// Describe returns a human-readable description.
func (s *WaitStep) Describe() string {
	return fmt.Sprintf("wait %dms", s.Ms)
}

// AcknowledgeSystemAlertStep accepts an OS alert if one is showing.
type AcknowledgeSystemAlertStep struct {
	BaseStep `yaml:",inline"`
}
