package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
	"github.com/devicelab-dev/baseline-runner/pkg/logger"
)

// DefaultTimeout bounds a single checkpoint wait.
const DefaultTimeout = 20 * time.Second

// Hub collects checkpoint signals and hands each occurrence to exactly one waiter.
// Occurrences signalled while nobody waits are latched until consumed, Reset,
// or discarded by Expect.
type Hub struct {
	Timeout time.Duration

	mu      sync.Mutex
	pending map[Checkpoint]int
	total   map[Checkpoint]int
	waiters map[Checkpoint][]chan struct{}
}

// NewHub creates a hub with the given wait timeout (0 = DefaultTimeout).
func NewHub(timeout time.Duration) *Hub {
	return &Hub{
		Timeout: timeout,
		pending: make(map[Checkpoint]int),
		total:   make(map[Checkpoint]int),
		waiters: make(map[Checkpoint][]chan struct{}),
	}
}

// Signal records one occurrence of cp. Safe to call from any goroutine.
func (h *Hub) Signal(cp Checkpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.total[cp]++
	if ws := h.waiters[cp]; len(ws) > 0 {
		close(ws[0])
		h.waiters[cp] = ws[1:]
		logger.Debug("checkpoint %s delivered", cp)
		return
	}
	h.pending[cp]++
	logger.Debug("checkpoint %s latched (%d pending)", cp, h.pending[cp])
}

// WaitForCheckpoint consumes one occurrence of cp, blocking until one arrives.
func (h *Hub) WaitForCheckpoint(ctx context.Context, cp Checkpoint) error {
	h.mu.Lock()
	if h.pending[cp] > 0 {
		h.pending[cp]--
		h.mu.Unlock()
		return nil
	}
	ch := h.addWaiter(cp)
	h.mu.Unlock()
	return h.wait(ctx, cp, ch)
}

// Expect arms a wait for the next occurrence of cp. Occurrences latched
// before the call are discarded; only a signal that arrives after Expect
// returns satisfies the expectation.
func (h *Hub) Expect(cp Checkpoint) Expectation {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := h.pending[cp]; n > 0 {
		logger.Debug("checkpoint %s: dropping %d stale occurrence(s)", cp, n)
		delete(h.pending, cp)
	}
	return &expectation{hub: h, cp: cp, ch: h.addWaiter(cp)}
}

type expectation struct {
	hub *Hub
	cp  Checkpoint
	ch  chan struct{}
}

func (e *expectation) Wait(ctx context.Context) error {
	return e.hub.wait(ctx, e.cp, e.ch)
}

func (e *expectation) Cancel() {
	e.hub.mu.Lock()
	defer e.hub.mu.Unlock()
	e.hub.removeWaiter(e.cp, e.ch)
}

func (h *Hub) addWaiter(cp Checkpoint) chan struct{} {
	ch := make(chan struct{})
	h.waiters[cp] = append(h.waiters[cp], ch)
	return ch
}

func (h *Hub) wait(ctx context.Context, cp Checkpoint, ch chan struct{}) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-ch:
		// Signalled between the timeout and taking the lock.
		return nil
	default:
	}
	h.removeWaiter(cp, ch)
	return core.ErrCheckpointTimeout.
		WithMessage(fmt.Sprintf("checkpoint %q was not observed", cp)).
		WithCause(ctx.Err())
}

// Pending returns the number of latched, unconsumed occurrences of cp.
func (h *Hub) Pending(cp Checkpoint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending[cp]
}

// Snapshot returns the total number of signals received per checkpoint.
func (h *Hub) Snapshot() map[Checkpoint]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[Checkpoint]int, len(h.total))
	for k, v := range h.total {
		out[k] = v
	}
	return out
}

// Reset drops latched occurrences so stale events from a previous test cannot
// satisfy a later wait.
func (h *Hub) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = make(map[Checkpoint]int)
}

func (h *Hub) removeWaiter(cp Checkpoint, ch chan struct{}) {
	ws := h.waiters[cp]
	for i, w := range ws {
		if w == ch {
			h.waiters[cp] = append(ws[:i:i], ws[i+1:]...)
			return
		}
	}
}

func (h *Hub) timeout() time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return DefaultTimeout
}
