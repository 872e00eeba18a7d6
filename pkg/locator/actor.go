package locator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

// Actor is the engine that resolves keys against the running application and
// performs interactions. There is one per run (or per parallel worker), shared by
// every handle and used strictly sequentially.
//
// The actor owns the timeout policy: each blocking call derives its own deadline
// and fails with a timeout ExecutionError when the condition never holds.
type Actor interface {
	// Peek reports whether key currently resolves, bounded by a short presence timeout.
	Peek(ctx context.Context, key Key) bool

	WaitForView(ctx context.Context, key Key) (core.View, error)
	WaitForTappable(ctx context.Context, key Key) (core.View, error)
	Tap(ctx context.Context, key Key) error
	Swipe(ctx context.Context, key Key, dir Direction) error
	WaitForAnimations(ctx context.Context) error

	ClearText(ctx context.Context, key Key) error
	EnterText(ctx context.Context, key Key, text string) error

	WaitForCell(ctx context.Context, container Key, path IndexPath) (core.View, error)
	TapCell(ctx context.Context, container Key, path IndexPath) error
	SwipeCell(ctx context.Context, container Key, path IndexPath, dir Direction) error

	AcknowledgeSystemAlert(ctx context.Context) error
	Sleep(ctx context.Context, d time.Duration) error
}

// Direction is a swipe direction.
type Direction string

// Directions.
const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// ParseDirection parses a case-insensitive direction name.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down, Left, Right:
		return d, nil
	default:
		return "", core.ErrInvalidConfig.WithMessage(fmt.Sprintf("unknown swipe direction %q", s))
	}
}

// IndexPath locates a cell in a collection or table.
// Handles do not clamp it against the current item counts.
type IndexPath struct {
	Section int
	Item    int
}

// Validate rejects negative components.
func (p IndexPath) Validate() error {
	if p.Section < 0 || p.Item < 0 {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("negative index path %s", p))
	}
	return nil
}

// String returns [section, item].
func (p IndexPath) String() string {
	return fmt.Sprintf("[%d, %d]", p.Section, p.Item)
}
