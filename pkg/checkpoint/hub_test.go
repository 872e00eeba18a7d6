package checkpoint

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/baseline-runner/pkg/core"
)

func TestHub_EachOccurrenceConsumedOnce(t *testing.T) {
	hub := NewHub(20 * time.Millisecond)
	hub.Signal(SignInAppeared)

	require.NoError(t, hub.WaitForCheckpoint(context.Background(), SignInAppeared))
	assert.Error(t, hub.WaitForCheckpoint(context.Background(), SignInAppeared))
}

func TestHub_WaitersServedInOrder(t *testing.T) {
	hub := NewHub(time.Second)
	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = hub.WaitForCheckpoint(context.Background(), ProfileSettingsAppeared)
		}(i)
	}

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.waiters[ProfileSettingsAppeared]) == 2
	}, time.Second, time.Millisecond)

	hub.Signal(ProfileSettingsAppeared)
	hub.Signal(ProfileSettingsAppeared)
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 0, hub.Pending(ProfileSettingsAppeared))
}

func TestHub_TimedOutWaiterIsRemoved(t *testing.T) {
	hub := NewHub(5 * time.Millisecond)

	assert.Error(t, hub.WaitForCheckpoint(context.Background(), SignInAppeared))

	hub.Signal(SignInAppeared)
	assert.Equal(t, 1, hub.Pending(SignInAppeared), "signal after timeout should be latched, not lost")
}

func TestHub_ResetAndSnapshot(t *testing.T) {
	hub := NewHub(0)
	hub.Signal(SignInAppeared)
	hub.Signal(SignInAppeared)

	hub.Reset()

	assert.Equal(t, 0, hub.Pending(SignInAppeared))
	assert.Equal(t, map[Checkpoint]int{SignInAppeared: 2}, hub.Snapshot())
	assert.Equal(t, DefaultTimeout, hub.timeout())
}

func TestHub_ExpectDropsLatchedOccurrences(t *testing.T) {
	hub := NewHub(20 * time.Millisecond)
	hub.Signal(SignInAppeared)
	hub.Signal(SignInAppeared)

	exp := hub.Expect(SignInAppeared)
	defer exp.Cancel()

	assert.Zero(t, hub.Pending(SignInAppeared))
	assert.ErrorIs(t, exp.Wait(context.Background()), core.ErrCheckpointTimeout)
}

func TestHub_ExpectTakesPrecedenceOverLatching(t *testing.T) {
	hub := NewHub(time.Second)
	exp := hub.Expect(ProfileSettingsAppeared)
	defer exp.Cancel()

	hub.Signal(ProfileSettingsAppeared)

	require.NoError(t, exp.Wait(context.Background()))
	assert.Zero(t, hub.Pending(ProfileSettingsAppeared))
}

func TestHub_CancelledExpectationIsRemoved(t *testing.T) {
	hub := NewHub(time.Second)
	hub.Expect(SignInAppeared).Cancel()

	hub.Signal(SignInAppeared)
	assert.Equal(t, 1, hub.Pending(SignInAppeared))
}
