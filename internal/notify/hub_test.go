// SPDX-License-Identifier: MPL-2.0

package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect[T any](s *Subscription[T]) []T {
	var got []T
	for ev := range s.C {
		got = append(got, ev)
	}
	return got
}

func TestHubDeliversInOrderToEverySubscriber(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	a, err := h.Subscribe()
	require.NoError(t, err)
	b, err := h.Subscribe()
	require.NoError(t, err)

	for i := range 100 {
		h.Publish(i)
	}
	h.Close()

	var wg sync.WaitGroup
	var gotA, gotB []int
	wg.Go(func() { gotA = collect(a) })
	wg.Go(func() { gotB = collect(b) })
	wg.Wait()
	h.Wait()

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, gotA)
	assert.Equal(t, want, gotB)
}

func TestHubPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	t.Parallel()

	h := NewHub[string]()
	slow, err := h.Subscribe()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for range 1000 {
			h.Publish("tick")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "Publish blocked on a subscriber that is not reading")
	}

	h.Close()
	assert.Len(t, collect(slow), 1000)
}

func TestSubscriptionUnsubscribe(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	s, err := h.Subscribe()
	require.NoError(t, err)
	keep, err := h.Subscribe()
	require.NoError(t, err)

	h.Publish(1)
	s.Unsubscribe()
	s.Unsubscribe()
	h.Publish(2)
	assert.Equal(t, 1, h.Len())

	// The unsubscribed channel closes even though nobody read the pending event.
	for range s.C {
	}

	h.Close()
	assert.Equal(t, []int{1, 2}, collect(keep))
	h.Wait()
}

func TestHubSubscribeAfterClose(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	h.Close()
	h.Close()
	h.Publish(1)

	_, err := h.Subscribe()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSubscriptionMissesEarlierEvents(t *testing.T) {
	t.Parallel()

	h := NewHub[int]()
	h.Publish(1)
	s, err := h.Subscribe()
	require.NoError(t, err)
	h.Publish(2)
	h.Close()
	assert.Equal(t, []int{2}, collect(s))
}
