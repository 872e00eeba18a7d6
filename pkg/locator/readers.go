package locator

import (
	"context"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// LabelReader reads static text.
type LabelReader struct {
	Element
}

// NewLabelReader creates a LabelReader handle.
func NewLabelReader(actor Actor, key Key) LabelReader {
	return LabelReader{Element: New(actor, key)}
}

// Text waits for the label and returns its text; "" if it is not a label.
func (r LabelReader) Text(ctx context.Context) (string, error) {
	v, ok, err := ViewAs[*core.LabelView](ctx, r.Element)
	if err != nil || !ok {
		return "", err
	}
	return v.Text, nil
}

// ButtonReader reads button state.
type ButtonReader struct {
	Element
}

// NewButtonReader creates a ButtonReader handle.
func NewButtonReader(actor Actor, key Key) ButtonReader {
	return ButtonReader{Element: New(actor, key)}
}

// Selected waits for the button to be tappable and returns its selected
// state; false if it is not a button.
func (r ButtonReader) Selected(ctx context.Context) (bool, error) {
	if err := Validate(r.key); err != nil {
		return false, err
	}
	v, err := r.actor.WaitForTappable(ctx, r.key)
	if err != nil {
		return false, notTappable(r.key, err)
	}
	b, ok := v.(*core.ButtonView)
	if !ok {
		return false, nil
	}
	return b.Selected, nil
}
