package locator

import (
	"context"
	"fmt"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

// TextInput is a handle on an editable text element: text fields, secure
// fields and search bars.
type TextInput struct {
	Element
}

// NewTextInput creates a TextInput handle.
func NewTextInput(actor Actor, key Key) TextInput {
	return TextInput{Element: New(actor, key)}
}

type entryOptions struct {
	expected string
	settle   time.Duration
}

// EntryOption configures ClearAndEnterText.
type EntryOption func(*entryOptions)

// ExpectResult makes entry verify the field's content afterwards.
// An empty value disables verification.
func ExpectResult(s string) EntryOption {
	return func(o *entryOptions) { o.expected = s }
}

// SettleDelay pauses after entry so reactive UI (live search) can update.
func SettleDelay(d time.Duration) EntryOption {
	return func(o *entryOptions) { o.settle = d }
}

// ClearAndEnterText clears the field and types text into it.
func (t TextInput) ClearAndEnterText(ctx context.Context, text string, opts ...EntryOption) error {
	var o entryOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := t.ClearText(ctx); err != nil {
		return err
	}
	if err := t.actor.EnterText(ctx, t.key, text); err != nil {
		return err
	}
	if o.expected != "" {
		got, err := t.readText(ctx)
		if err != nil {
			return err
		}
		if got != o.expected {
			return core.ErrTextMismatch.
				WithMessage(fmt.Sprintf("%s: expected %q, got %q", t, o.expected, got)).
				WithDetails(map[string]interface{}{"expected": o.expected, "actual": got})
		}
	}
	logger.Info("STEP: Entered text into '%s'", t.key.Value())
	return t.actor.Sleep(ctx, o.settle)
}

// Text returns the field's content, or "" when it cannot be resolved.
func (t TextInput) Text(ctx context.Context) (string, error) {
	if err := Validate(t.key); err != nil {
		return "", err
	}
	got, err := t.readText(ctx)
	if err != nil {
		logger.Debug("text of %s unavailable: %v", t, err)
		return "", nil
	}
	return got, nil
}

// ClearText removes the field's content.
func (t TextInput) ClearText(ctx context.Context) error {
	if err := Validate(t.key); err != nil {
		return err
	}
	return t.actor.ClearText(ctx, t.key)
}

func (t TextInput) readText(ctx context.Context) (string, error) {
	v, err := t.actor.WaitForView(ctx, t.key)
	if err != nil {
		return "", err
	}
	if field, ok := v.(*core.TextFieldView); ok {
		return field.Text, nil
	}
	return "", nil
}
