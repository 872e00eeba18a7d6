package locator

import (
	"context"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// Table is a handle on a table container.
type Table struct {
	Element
}

// NewTable creates a Table handle.
func NewTable(actor Actor, key Key) Table {
	return Table{Element: New(actor, key)}
}

// TapCell waits for the row at path to exist and then taps it.
func (t Table) TapCell(ctx context.Context, path IndexPath) error {
	return tapCell(ctx, t.Element, path)
}

// Cell waits for the row at path and returns its projection.
func (t Table) Cell(ctx context.Context, path IndexPath) (core.View, error) {
	return waitCell(ctx, t.Element, path)
}

// NumberOfSections returns the section count; ok is false when the table
// cannot be resolved.
func (t Table) NumberOfSections(ctx context.Context) (int, bool, error) {
	v, ok, err := t.resolve(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	return v.NumberOfSections(), true, nil
}

// NumberOfRows returns the row count of section. An existing empty section
// yields 0 and true; ok is false when the table cannot be resolved or
// has no such section.
func (t Table) NumberOfRows(ctx context.Context, section int) (int, bool, error) {
	if err := (IndexPath{Section: section}).Validate(); err != nil {
		return 0, false, err
	}
	v, ok, err := t.resolve(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	n, ok := v.NumberOfRows(section)
	return n, ok, nil
}

// SwipeCell swipes the row at path in place.
func (t Table) SwipeCell(ctx context.Context, path IndexPath, dir Direction) error {
	if err := Validate(t.key); err != nil {
		return err
	}
	if _, err := t.actor.WaitForView(ctx, t.key); err != nil {
		return err
	}
	if _, err := waitCell(ctx, t.Element, path); err != nil {
		return err
	}
	return t.actor.SwipeCell(ctx, t.key, path, dir)
}

func (t Table) resolve(ctx context.Context) (*core.TableView, bool, error) {
	v, ok, err := resolveContainer(ctx, t.Element)
	if err != nil || !ok {
		return nil, false, err
	}
	tv, ok := v.(*core.TableView)
	return tv, ok, nil
}
