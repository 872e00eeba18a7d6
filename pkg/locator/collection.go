package locator

import (
	"context"
	"math/rand/v2"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

// Collection is a handle on a collection container.
type Collection struct {
	Element
	intN func(n int) int
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

// WithRand makes RandomIndexPath draw from r.
func WithRand(r *rand.Rand) CollectionOption {
	return func(c *Collection) { c.intN = r.IntN }
}

// NewCollection creates a Collection handle.
func NewCollection(actor Actor, key Key, opts ...CollectionOption) Collection {
	c := Collection{Element: New(actor, key), intN: rand.IntN}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// TapCell waits for the cell at path to exist and then taps it.
func (c Collection) TapCell(ctx context.Context, path IndexPath) error {
	return tapCell(ctx, c.Element, path)
}

// Cell waits for the cell at path and returns its projection.
func (c Collection) Cell(ctx context.Context, path IndexPath) (core.View, error) {
	return waitCell(ctx, c.Element, path)
}

// NumberOfSections returns the section count; ok is false when the collection
// cannot be resolved.
func (c Collection) NumberOfSections(ctx context.Context) (int, bool, error) {
	v, ok, err := c.resolve(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	return v.NumberOfSections(), true, nil
}

// NumberOfItems returns the item count of section. An existing empty section
// yields 0 and true; ok is false when the collection cannot be resolved or
// has no such section.
func (c Collection) NumberOfItems(ctx context.Context, section int) (int, bool, error) {
	if err := (IndexPath{Section: section}).Validate(); err != nil {
		return 0, false, err
	}
	v, ok, err := c.resolve(ctx)
	if err != nil || !ok {
		return 0, false, err
	}
	n, ok := v.NumberOfItems(section)
	return n, ok, nil
}

// RandomIndexPath picks an item of section uniformly at random.
// ok is false when the section is empty or missing, or the collection cannot
// be resolved.
func (c Collection) RandomIndexPath(ctx context.Context, section int) (IndexPath, bool, error) {
	n, ok, err := c.NumberOfItems(ctx, section)
	if err != nil || !ok || n == 0 {
		return IndexPath{}, false, err
	}
	return IndexPath{Section: section, Item: c.intN(n)}, true, nil
}

func (c Collection) resolve(ctx context.Context) (*core.CollectionView, bool, error) {
	v, ok, err := resolveContainer(ctx, c.Element)
	if err != nil || !ok {
		return nil, false, err
	}
	cv, ok := v.(*core.CollectionView)
	return cv, ok, nil
}

// CellAs waits for the cell at path and narrows it to T; ok is false on a
// type mismatch.
func CellAs[T core.View](ctx context.Context, c interface {
	Cell(context.Context, IndexPath) (core.View, error)
}, path IndexPath) (cell T, ok bool, err error) {
	v, err := c.Cell(ctx, path)
	if err != nil {
		return cell, false, err
	}
	cell, ok = v.(T)
	return cell, ok, nil
}

func tapCell(ctx context.Context, e Element, path IndexPath) error {
	if _, err := waitCell(ctx, e, path); err != nil {
		return err
	}
	// The actor re-resolves the cell; it may have moved while we waited.
	if err := e.actor.TapCell(ctx, e.key, path); err != nil {
		return err
	}
	logger.Info("STEP: Tapped cell %s in '%s'", path, e.key.Value())
	return nil
}

func waitCell(ctx context.Context, e Element, path IndexPath) (core.View, error) {
	if err := Validate(e.key); err != nil {
		return nil, err
	}
	if err := path.Validate(); err != nil {
		return nil, err
	}
	return e.actor.WaitForCell(ctx, e.key, path)
}

// resolveContainer waits for a container view. A container that never shows
// up is reported as ok=false, not as an error.
func resolveContainer(ctx context.Context, e Element) (core.View, bool, error) {
	if err := Validate(e.key); err != nil {
		return nil, false, err
	}
	v, err := e.actor.WaitForView(ctx, e.key)
	if err != nil {
		logger.Debug("container %s not resolved: %v", e.key, err)
		return nil, false, nil
	}
	return v, true, nil
}
