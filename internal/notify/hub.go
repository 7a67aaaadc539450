// SPDX-License-Identifier: MPL-2.0

// Package notify delivers events to subscribers in publication order.
//
// Publish never blocks the publisher: each subscription owns an unbounded
// queue drained by its own goroutine into the subscription channel. A slow
// subscriber therefore delays only itself, and every subscriber observes the
// same order.
package notify

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("notification hub closed")

type (
	// Hub fans events out to an ordered list of subscriptions.
	// The zero value is not usable; call NewHub.
	Hub[T any] struct {
		mu     sync.Mutex
		subs   []*Subscription[T]
		closed bool
		wg     sync.WaitGroup
	}

	// Subscription receives events on C until it is unsubscribed or the hub
	// is closed, after which C is closed once pending events are delivered.
	Subscription[T any] struct {
		// C delivers events in publication order.
		C <-chan T

		hub  *Hub[T]
		out  chan T
		stop chan struct{}
		mu   sync.Mutex
		cond *sync.Cond
		buf  []T
		done bool
		drop bool
	}
)

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{}
}

// Subscribe registers a new subscription. Events published before the call
// are not replayed.
func (h *Hub[T]) Subscribe() (*Subscription[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	out := make(chan T)
	s := &Subscription[T]{C: out, hub: h, out: out, stop: make(chan struct{})}
	s.cond = sync.NewCond(&s.mu)
	h.subs = append(h.subs, s)

	h.wg.Add(1)
	go s.pump(&h.wg)
	return s, nil
}

// Publish enqueues ev for every current subscription. Publishing on a closed
// hub is a no-op.
func (h *Hub[T]) Publish(ev T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, s := range h.subs {
		s.enqueue(ev)
	}
}

// Close stops accepting events. Each subscription receives what was already
// published and then has its channel closed. Close does not wait for
// subscribers to drain; use Wait for that.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()

	for _, s := range subs {
		s.finish(false)
	}
}

// Wait blocks until every subscription channel has been closed.
func (h *Hub[T]) Wait() {
	h.wg.Wait()
}

// Len returns the number of active subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Unsubscribe removes the subscription. Pending events are discarded and C
// is closed. Safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	h := s.hub
	h.mu.Lock()
	for i, cur := range h.subs {
		if cur == s {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			break
		}
	}
	h.mu.Unlock()

	s.finish(true)
}

func (s *Subscription[T]) enqueue(ev T) {
	s.mu.Lock()
	if !s.done {
		s.buf = append(s.buf, ev)
		s.cond.Signal()
	}
	s.mu.Unlock()
}

func (s *Subscription[T]) finish(drop bool) {
	s.mu.Lock()
	s.done = true
	if drop && !s.drop {
		s.drop = true
		s.buf = nil
		close(s.stop)
	}
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *Subscription[T]) pump(wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(s.out)

	for {
		s.mu.Lock()
		for len(s.buf) == 0 && !s.done {
			s.cond.Wait()
		}
		if len(s.buf) == 0 || s.drop {
			s.mu.Unlock()
			return
		}
		ev := s.buf[0]
		var zero T
		s.buf[0] = zero
		s.buf = s.buf[1:]
		s.mu.Unlock()

		select {
		case s.out <- ev:
		case <-s.stop:
			return
		}
	}
}
