// Package fake provides a scriptable in-memory application that implements
// the locator actor contract, for testing without a real device.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/checkpoint"
	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/locator"
	"github.com/devicelab-dev/baseline-runner/pkg/wait"
)

// Kind selects the view projection an element resolves to.
type Kind int

// Element kinds.
const (
	KindGeneric Kind = iota
	KindButton
	KindLabel
	KindTextField
	KindCollection
	KindTable
)

// Config configures fake app behavior.
type Config struct {
	// Timeout bounds every wait; keep it short in tests.
	Timeout time.Duration
	// Interval is the polling interval of waits.
	Interval time.Duration
	// CheckpointTimeout bounds checkpoint waits.
	CheckpointTimeout time.Duration
}

// App is a fake application. Tests script it with Show, Hide and OnTap and
// inspect what happened with Taps, Sleeps and Alerts.
type App struct {
	poller wait.Poller
	hub    *checkpoint.Hub

	mu        sync.Mutex
	elements  map[string]*element
	taps      []string
	swipes    []string
	sleeps    []time.Duration
	alerts    int
	alertUp   bool
	animWaits int
}

type element struct {
	key       locator.Key
	kind      Kind
	info      core.ElementInfo
	sections  []int
	onTap     func()
	onTapCell func(locator.IndexPath)
	transform func(string) string
	tapErr    error
}

// New creates an empty fake app.
func New(cfg Config) *App {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 200 * time.Millisecond
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Millisecond
	}
	if cfg.CheckpointTimeout <= 0 {
		cfg.CheckpointTimeout = cfg.Timeout
	}
	return &App{
		poller:   wait.Poller{Timeout: cfg.Timeout, Interval: cfg.Interval},
		hub:      checkpoint.NewHub(cfg.CheckpointTimeout),
		elements: make(map[string]*element),
	}
}

// Show makes a generic, tappable element visible.
func (a *App) Show(key locator.Key) { a.ShowAs(key, KindGeneric) }

// ShowAs makes an element of the given kind visible and enabled.
func (a *App) ShowAs(key locator.Key, kind Kind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	el := a.lookup(key)
	el.kind = kind
	el.info.Visible = true
	el.info.Enabled = true
}

// Hide removes an element from the screen. Its script is kept.
func (a *App) Hide(key locator.Key) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).info.Visible = false
}

// SetEnabled toggles whether an element accepts taps.
func (a *App) SetEnabled(key locator.Key, enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).info.Enabled = enabled
}

// SetText sets an element's text.
func (a *App) SetText(key locator.Key, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).info.Text = text
}

// SetSelected sets a button's selected state.
func (a *App) SetSelected(key locator.Key, selected bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).info.Selected = selected
}

// SetSections sets the per-section item counts of a container.
func (a *App) SetSections(key locator.Key, counts ...int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).sections = append([]int(nil), counts...)
}

// OnTap registers fn to run after every tap on key.
func (a *App) OnTap(key locator.Key, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).onTap = fn
}

// OnTapCell registers fn to run after every cell tap inside the container key.
func (a *App) OnTapCell(key locator.Key, fn func(locator.IndexPath)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).onTapCell = fn
}

// TransformText makes the field store fn(text) instead of the typed text.
func (a *App) TransformText(key locator.Key, fn func(string) string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).transform = fn
}

// FailTap makes every tap on key return err.
func (a *App) FailTap(key locator.Key, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).tapErr = err
}

// RaiseSystemAlert puts an OS alert on screen.
func (a *App) RaiseSystemAlert() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alertUp = true
}

// SystemAlertUp reports whether an OS alert is waiting to be acknowledged.
func (a *App) SystemAlertUp() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alertUp
}

// Signal fires a checkpoint from the app's instrumentation.
func (a *App) Signal(cp checkpoint.Checkpoint) { a.hub.Signal(cp) }

// Hub returns the app's checkpoint hub.
func (a *App) Hub() *checkpoint.Hub { return a.hub }

// Taps returns the tap log. Element taps are logged by key value, cell taps
// as value followed by the index path.
func (a *App) Taps() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.taps...)
}

// Swipes returns the swipe log as "value:direction".
func (a *App) Swipes() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.swipes...)
}

// Sleeps returns every delay requested through Sleep.
func (a *App) Sleeps() []time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]time.Duration(nil), a.sleeps...)
}

// Alerts returns how many OS alerts were acknowledged.
func (a *App) Alerts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alerts
}

// AnimationWaits returns how many times WaitForAnimations was called.
func (a *App) AnimationWaits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.animWaits
}

// Peek reports whether key is visible right now.
func (a *App) Peek(ctx context.Context, key locator.Key) bool {
	_, err := a.snapshot(key, false)
	return err == nil
}

// WaitForView waits until key is visible.
func (a *App) WaitForView(ctx context.Context, key locator.Key) (core.View, error) {
	return a.waitFor(ctx, key, false)
}

// WaitForTappable waits until key is visible and enabled.
func (a *App) WaitForTappable(ctx context.Context, key locator.Key) (core.View, error) {
	return a.waitFor(ctx, key, true)
}

// Tap taps key and runs its OnTap script.
func (a *App) Tap(ctx context.Context, key locator.Key) error {
	a.mu.Lock()
	el, err := a.resolve(key, true)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	if el.tapErr != nil {
		a.mu.Unlock()
		return el.tapErr
	}
	a.taps = append(a.taps, key.Value())
	fn := el.onTap
	a.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Swipe records a swipe on key.
func (a *App) Swipe(ctx context.Context, key locator.Key, dir locator.Direction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.resolve(key, false); err != nil {
		return err
	}
	a.swipes = append(a.swipes, fmt.Sprintf("%s:%s", key.Value(), dir))
	return nil
}

// WaitForAnimations returns immediately; the fake never animates.
func (a *App) WaitForAnimations(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.animWaits++
	return nil
}

// ClearText empties the text of key.
func (a *App) ClearText(ctx context.Context, key locator.Key) error {
	if _, err := a.WaitForView(ctx, key); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup(key).info.Text = ""
	return nil
}

// EnterText appends text to key's content.
func (a *App) EnterText(ctx context.Context, key locator.Key, text string) error {
	if _, err := a.WaitForTappable(ctx, key); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	el := a.lookup(key)
	if el.transform != nil {
		text = el.transform(text)
	}
	el.info.Text += text
	return nil
}

// WaitForCell waits until the container key holds a cell at path.
func (a *App) WaitForCell(ctx context.Context, container locator.Key, path locator.IndexPath) (core.View, error) {
	var cell core.View
	err := a.poller.Until(ctx, func(context.Context) error {
		a.mu.Lock()
		defer a.mu.Unlock()
		v, err := a.cell(container, path)
		if err != nil {
			return err
		}
		cell = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cell, nil
}

// TapCell taps the cell at path and runs the container's OnTapCell script.
func (a *App) TapCell(ctx context.Context, container locator.Key, path locator.IndexPath) error {
	a.mu.Lock()
	if _, err := a.cell(container, path); err != nil {
		a.mu.Unlock()
		return err
	}
	a.taps = append(a.taps, container.Value()+path.String())
	fn := a.lookup(container).onTapCell
	a.mu.Unlock()

	if fn != nil {
		fn(path)
	}
	return nil
}

// SwipeCell records a swipe on a cell.
func (a *App) SwipeCell(ctx context.Context, container locator.Key, path locator.IndexPath, dir locator.Direction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.cell(container, path); err != nil {
		return err
	}
	a.swipes = append(a.swipes, fmt.Sprintf("%s%s:%s", container.Value(), path, dir))
	return nil
}

// AcknowledgeSystemAlert dismisses the OS alert if one is up.
func (a *App) AcknowledgeSystemAlert(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts++
	a.alertUp = false
	return nil
}

// Sleep records d and returns without sleeping.
func (a *App) Sleep(ctx context.Context, d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sleeps = append(a.sleeps, d)
	return ctx.Err()
}

// WaitForCheckpoint waits on the app's hub.
func (a *App) WaitForCheckpoint(ctx context.Context, cp checkpoint.Checkpoint) error {
	return a.hub.WaitForCheckpoint(ctx, cp)
}

// Expect arms a wait on the app's hub.
func (a *App) Expect(cp checkpoint.Checkpoint) checkpoint.Expectation {
	return a.hub.Expect(cp)
}

func (a *App) waitFor(ctx context.Context, key locator.Key, tappable bool) (core.View, error) {
	var view core.View
	err := a.poller.Until(ctx, func(context.Context) error {
		v, err := a.snapshot(key, tappable)
		if err != nil {
			return err
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (a *App) snapshot(key locator.Key, tappable bool) (core.View, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	el, err := a.resolve(key, tappable)
	if err != nil {
		return nil, err
	}
	return el.project(), nil
}

// resolve must be called with a.mu held.
func (a *App) resolve(key locator.Key, tappable bool) (*element, error) {
	el, ok := a.elements[key.String()]
	if !ok || !el.info.Visible {
		return nil, core.ErrElementNotFound.WithMessage(fmt.Sprintf("%s not on screen", key))
	}
	if tappable && !el.info.Tappable() {
		return nil, core.ErrNotTappable.WithMessage(fmt.Sprintf("%s is not enabled", key))
	}
	return el, nil
}

// cell must be called with a.mu held.
func (a *App) cell(container locator.Key, path locator.IndexPath) (core.View, error) {
	el, err := a.resolve(container, false)
	if err != nil {
		return nil, err
	}
	if path.Section >= len(el.sections) || path.Item >= el.sections[path.Section] {
		return nil, core.ErrElementNotFound.WithMessage(fmt.Sprintf("no cell %s in %s", path, container))
	}
	return &core.CellView{
		ElementInfo: core.ElementInfo{Type: "Cell", Visible: true, Enabled: true},
		Section:     path.Section,
		Item:        path.Item,
	}, nil
}

// lookup must be called with a.mu held.
func (a *App) lookup(key locator.Key) *element {
	id := key.String()
	el, ok := a.elements[id]
	if !ok {
		el = &element{key: key}
		if key.Strategy() == locator.StrategyIdentifier {
			el.info.Identifier = key.Value()
		} else {
			el.info.AccessibilityLabel = key.Value()
		}
		a.elements[id] = el
	}
	return el
}

func (el *element) project() core.View {
	info := el.info
	switch el.kind {
	case KindButton:
		return &core.ButtonView{ElementInfo: info}
	case KindLabel:
		return &core.LabelView{ElementInfo: info}
	case KindTextField:
		return &core.TextFieldView{ElementInfo: info}
	case KindCollection:
		return &core.CollectionView{ElementInfo: info, Sections: append([]int(nil), el.sections...)}
	case KindTable:
		return &core.TableView{ElementInfo: info, Sections: append([]int(nil), el.sections...)}
	default:
		return &core.GenericView{ElementInfo: info}
	}
}

var (
	_ locator.Actor     = (*App)(nil)
	_ checkpoint.Waiter = (*App)(nil)
)
