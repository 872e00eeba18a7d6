// Package locator finds and drives UI elements identified by an accessibility
// identifier or an accessibility label.
package locator

import (
	"fmt"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// Strategy tells an actor how to resolve a Key.
type Strategy int

// Strategies.
const (
	StrategyIdentifier Strategy = iota + 1
	StrategyLabel
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyIdentifier:
		return "id"
	case StrategyLabel:
		return "label"
	default:
		return "unknown"
	}
}

// Key identifies one element. It is either an Identifier or a Label, never both.
type Key interface {
	Strategy() Strategy
	Value() string
	String() string
	isKey()
}

// Identifier is a stable accessibility identifier.
type Identifier string

// Strategy returns StrategyIdentifier.
func (Identifier) Strategy() Strategy { return StrategyIdentifier }

// Value returns the raw identifier.
func (i Identifier) Value() string { return string(i) }

// String returns id="value".
func (i Identifier) String() string { return fmt.Sprintf("id=%q", string(i)) }

func (Identifier) isKey() {}

// Label is a human-readable accessibility label.
type Label string

// Strategy returns StrategyLabel.
func (Label) Strategy() Strategy { return StrategyLabel }

// Value returns the raw label.
func (l Label) Value() string { return string(l) }

// String returns label="value".
func (l Label) String() string { return fmt.Sprintf("label=%q", string(l)) }

func (Label) isKey() {}

// Validate reports core.ErrNoLocator for a nil key or an empty value.
func Validate(k Key) error {
	if k == nil {
		return core.ErrNoLocator
	}
	if k.Value() == "" {
		return core.ErrNoLocator.WithMessage(fmt.Sprintf("empty %s set for element", k.Strategy()))
	}
	return nil
}

// ParseKey builds a Key from optional identifier and label strings.
// Exactly one of them must be non-empty.
func ParseKey(id, label string) (Key, error) {
	switch {
	case id != "" && label != "":
		return nil, core.ErrInvalidConfig.WithMessage(
			fmt.Sprintf("both id %q and label %q set; use one", id, label))
	case id != "":
		return Identifier(id), nil
	case label != "":
		return Label(label), nil
	default:
		return nil, core.ErrNoLocator
	}
}

// Describe renders a possibly nil key for messages.
func Describe(k Key) string {
	if k == nil {
		return "<no locator>"
	}
	return k.String()
}
