package wda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/checkpoint"
	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
	"github.com/devicelab-dev/baseline-runner/pkg/wait"
)

// Element finding timeouts.
const (
	DefaultFindTimeout     = 20 * time.Second
	DefaultPresenceTimeout = time.Second
	cellClass              = "XCUIElementTypeCell"
)

// Options configures driver timeouts. Zero values use the defaults.
type Options struct {
	FindTimeout     time.Duration
	PresenceTimeout time.Duration
	PollInterval    time.Duration
}

// Driver implements locator.Actor using WebDriverAgent for iOS.
// Checkpoints arrive out of band and are delivered through the embedded hub.
type Driver struct {
	client *Client
	hub    *checkpoint.Hub

	find     wait.Poller
	presence wait.Poller
}

// NewDriver creates a new WDA driver.
func NewDriver(client *Client, hub *checkpoint.Hub, opts Options) *Driver {
	if opts.FindTimeout <= 0 {
		opts.FindTimeout = DefaultFindTimeout
	}
	if opts.PresenceTimeout <= 0 {
		opts.PresenceTimeout = DefaultPresenceTimeout
	}
	if hub == nil {
		hub = checkpoint.NewHub(0)
	}
	return &Driver{
		client:   client,
		hub:      hub,
		find:     wait.Poller{Timeout: opts.FindTimeout, Interval: opts.PollInterval},
		presence: wait.Poller{Timeout: opts.PresenceTimeout, Interval: opts.PollInterval},
	}
}

// Hub returns the checkpoint hub instrumentation sources signal into.
func (d *Driver) Hub() *checkpoint.Hub { return d.hub }

// Peek makes one bounded lookup attempt.
func (d *Driver) Peek(ctx context.Context, key locator.Key) bool {
	err := d.presence.Once(ctx, func(ctx context.Context) error {
		id, err := d.locate(ctx, key)
		if err != nil {
			return err
		}
		shown, err := d.client.ElementDisplayed(ctx, id)
		if err != nil {
			return err
		}
		if !shown {
			return core.ErrElementNotFound
		}
		return nil
	})
	if err != nil {
		logger.Debug("presence %s: %v", key, err)
	}
	return err == nil
}

// WaitForView polls until key resolves to a visible element.
func (d *Driver) WaitForView(ctx context.Context, key locator.Key) (core.View, error) {
	return d.waitFor(ctx, key, false)
}

// WaitForTappable polls until key resolves to a visible, enabled element.
func (d *Driver) WaitForTappable(ctx context.Context, key locator.Key) (core.View, error) {
	return d.waitFor(ctx, key, true)
}

// Tap clicks the element.
func (d *Driver) Tap(ctx context.Context, key locator.Key) error {
	id, err := d.locate(ctx, key)
	if err != nil {
		return err
	}
	return d.client.ElementClick(ctx, id)
}

// Swipe swipes the element in dir.
func (d *Driver) Swipe(ctx context.Context, key locator.Key, dir locator.Direction) error {
	id, err := d.locate(ctx, key)
	if err != nil {
		return err
	}
	return d.client.ElementSwipe(ctx, id, string(dir))
}

// WaitForAnimations polls until two consecutive page sources are identical.
func (d *Driver) WaitForAnimations(ctx context.Context) error {
	var (
		last string
		seen bool
	)
	return d.find.Until(ctx, func(ctx context.Context) error {
		src, err := d.client.Source(ctx)
		if err != nil {
			return err
		}
		if seen && src == last {
			return nil
		}
		last, seen = src, true
		return fmt.Errorf("screen still changing")
	})
}

// ClearText clears the element's text.
func (d *Driver) ClearText(ctx context.Context, key locator.Key) error {
	id, err := d.waitForID(ctx, key)
	if err != nil {
		return err
	}
	return d.client.ElementClear(ctx, id)
}

// EnterText types text into the element.
func (d *Driver) EnterText(ctx context.Context, key locator.Key, text string) error {
	id, err := d.waitForID(ctx, key)
	if err != nil {
		return err
	}
	return d.client.ElementSendKeys(ctx, id, text)
}

// WaitForCell polls until the container holds a cell at path.
// WDA exposes cells as a flat list, so only section 0 exists.
func (d *Driver) WaitForCell(ctx context.Context, container locator.Key, path locator.IndexPath) (core.View, error) {
	var view core.View
	err := d.find.Until(ctx, func(ctx context.Context) error {
		id, err := d.cellID(ctx, container, path)
		if err != nil {
			return err
		}
		v, err := d.project(ctx, id)
		if err != nil {
			return err
		}
		info := v.Info()
		view = &core.CellView{ElementInfo: info, Section: path.Section, Item: path.Item}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// TapCell clicks the cell at path.
func (d *Driver) TapCell(ctx context.Context, container locator.Key, path locator.IndexPath) error {
	id, err := d.cellID(ctx, container, path)
	if err != nil {
		return err
	}
	return d.client.ElementClick(ctx, id)
}

// SwipeCell swipes the cell at path.
func (d *Driver) SwipeCell(ctx context.Context, container locator.Key, path locator.IndexPath, dir locator.Direction) error {
	id, err := d.cellID(ctx, container, path)
	if err != nil {
		return err
	}
	return d.client.ElementSwipe(ctx, id, string(dir))
}

// AcknowledgeSystemAlert accepts the OS alert if one is showing.
func (d *Driver) AcknowledgeSystemAlert(ctx context.Context) error {
	err := d.client.AcceptAlert(ctx)
	if hasCode(err, codeNoSuchAlert) {
		logger.Debug("no system alert to acknowledge")
		return nil
	}
	return err
}

// Sleep pauses for dur.
func (d *Driver) Sleep(ctx context.Context, dur time.Duration) error {
	return wait.Sleep(ctx, dur)
}

// WaitForCheckpoint waits on the embedded hub.
func (d *Driver) WaitForCheckpoint(ctx context.Context, cp checkpoint.Checkpoint) error {
	return d.hub.WaitForCheckpoint(ctx, cp)
}

// Expect arms a wait on the embedded hub.
func (d *Driver) Expect(cp checkpoint.Checkpoint) checkpoint.Expectation {
	return d.hub.Expect(cp)
}

func (d *Driver) waitFor(ctx context.Context, key locator.Key, tappable bool) (core.View, error) {
	var view core.View
	err := d.find.Until(ctx, func(ctx context.Context) error {
		id, err := d.locate(ctx, key)
		if err != nil {
			return err
		}
		v, err := d.project(ctx, id)
		if err != nil {
			return err
		}
		info := v.Info()
		if !info.Visible {
			return core.ErrElementNotFound.WithMessage(fmt.Sprintf("%s is not visible", key))
		}
		if tappable && !info.Tappable() {
			return core.ErrNotTappable.WithMessage(fmt.Sprintf("%s is not enabled", key))
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (d *Driver) waitForID(ctx context.Context, key locator.Key) (string, error) {
	var id string
	err := d.find.Until(ctx, func(ctx context.Context) error {
		var err error
		id, err = d.locate(ctx, key)
		return err
	})
	return id, err
}

// locate resolves key with a single WDA query.
func (d *Driver) locate(ctx context.Context, key locator.Key) (string, error) {
	using, value := query(key)
	return d.client.FindElement(ctx, using, value)
}

// query maps a key onto a WDA locator strategy.
func query(key locator.Key) (using, value string) {
	switch key.Strategy() {
	case locator.StrategyLabel:
		return "predicate string", fmt.Sprintf("label == '%s'", escapePredicate(key.Value()))
	default:
		return "accessibility id", key.Value()
	}
}

func escapePredicate(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `'`, `\'`)
}

func (d *Driver) cells(ctx context.Context, container locator.Key) ([]string, error) {
	id, err := d.locate(ctx, container)
	if err != nil {
		return nil, err
	}
	return d.client.FindElementsFrom(ctx, id, "class name", cellClass)
}

func (d *Driver) cellID(ctx context.Context, container locator.Key, path locator.IndexPath) (string, error) {
	cells, err := d.cells(ctx, container)
	if err != nil {
		return "", err
	}
	if path.Section != 0 || path.Item >= len(cells) {
		return "", core.ErrElementNotFound.WithMessage(fmt.Sprintf("no cell %s in %s", path, container))
	}
	return cells[path.Item], nil
}

// project reads an element's attributes and builds the typed view for its
// XCUIElementType.
func (d *Driver) project(ctx context.Context, id string) (core.View, error) {
	typ, err := d.client.ElementType(ctx, id)
	if err != nil {
		return nil, err
	}
	info := core.ElementInfo{ID: id, Type: typ}

	if info.Visible, err = d.client.ElementDisplayed(ctx, id); err != nil {
		return nil, err
	}
	if info.Enabled, err = d.client.ElementEnabled(ctx, id); err != nil {
		return nil, err
	}
	if b, err := d.client.ElementRect(ctx, id); err == nil {
		info.Bounds = b
	}
	if text, err := d.client.ElementText(ctx, id); err == nil {
		info.Text = text
	}
	if name, err := d.client.ElementAttribute(ctx, id, "name"); err == nil {
		info.Identifier = name
	}
	if label, err := d.client.ElementAttribute(ctx, id, "label"); err == nil {
		info.AccessibilityLabel = label
	}

	switch typ {
	case "XCUIElementTypeTextField", "XCUIElementTypeSecureTextField",
		"XCUIElementTypeSearchField", "XCUIElementTypeTextView":
		placeholder, _ := d.client.ElementAttribute(ctx, id, "placeholderValue")
		return &core.TextFieldView{ElementInfo: info, Placeholder: placeholder}, nil
	case "XCUIElementTypeStaticText":
		return &core.LabelView{ElementInfo: info}, nil
	case "XCUIElementTypeButton":
		if info.Selected, err = d.client.ElementSelected(ctx, id); err != nil {
			return nil, err
		}
		return &core.ButtonView{ElementInfo: info}, nil
	case "XCUIElementTypeCollectionView", "XCUIElementTypeTable":
		cells, err := d.client.FindElementsFrom(ctx, id, "class name", cellClass)
		if err != nil {
			return nil, err
		}
		sections := []int{len(cells)}
		if typ == "XCUIElementTypeTable" {
			return &core.TableView{ElementInfo: info, Sections: sections}, nil
		}
		return &core.CollectionView{ElementInfo: info, Sections: sections}, nil
	case cellClass:
		return &core.CellView{ElementInfo: info}, nil
	default:
		return &core.GenericView{ElementInfo: info}, nil
	}
}

var (
	_ locator.Actor     = (*Driver)(nil)
	_ checkpoint.Waiter = (*Driver)(nil)
)
