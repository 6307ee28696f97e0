package rhub

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rchan"
)

// Subscription is a live attachment to a [Hub].
//
// Next must not be called concurrently with itself.
// Cancel may be called from any goroutine.
type Subscription[T any] struct {
	h   *Hub[T]
	s   *subscriber[T]
	idx uint

	cancelOnce sync.Once
}

// Subscribe attaches a new subscription to h.
// The subscription receives only values emitted after Subscribe returns.
//
// After the hub terminates, Subscribe returns a [*rivulet.InvalidStateError].
func (h *Hub[T]) Subscribe() (*Subscription[T], error) {
	s := &subscriber[T]{
		id:       uuid.NewString(),
		ch:       make(chan T, h.bufferSize),
		canceled: make(chan struct{}),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.terminal != nil {
		return nil, &rivulet.InvalidStateError{Cause: h.terminal}
	}

	idx := h.subs.Add(s)
	h.subscribersChangedLocked()

	h.log.Debug("Added hub subscription", "name", h.name, "id", s.id)

	return &Subscription[T]{h: h, s: s, idx: idx}, nil
}

// subscribersChangedLocked publishes the subscriber count.
// The caller must hold h.mu.
func (h *Hub[T]) subscribersChangedLocked() {
	n := h.subs.Len()
	_, _ = h.count.Set(n)
	h.metrics.SetSubscribers(n)
}

// ID returns the unique identifier of the subscription, for logging.
func (s *Subscription[T]) ID() string {
	return s.s.id
}

// Next returns the next value emitted to the hub,
// suspending until one is available.
//
// If ctx is canceled, Next returns context.Cause(ctx).
// If s was canceled, Next returns [rivulet.ErrSubscriptionCanceled].
// If the hub terminated, Next returns any values still buffered for s,
// and then the hub's terminal cause.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	var zero T

	if rchan.IsClosed(s.s.canceled) {
		return zero, rivulet.ErrSubscriptionCanceled
	}

	select {
	case <-ctx.Done():
		return zero, context.Cause(ctx)

	case <-s.s.canceled:
		return zero, rivulet.ErrSubscriptionCanceled

	case v := <-s.s.ch:
		return v, nil

	case <-s.h.done:
		select {
		case v := <-s.s.ch:
			return v, nil
		default:
			return zero, s.h.Err()
		}
	}
}

// Collect calls fn with every value received by s, in order.
// Collect never returns nil: it only returns on an error from ctx, from fn,
// from cancellation of s, or from termination of the hub.
func (s *Subscription[T]) Collect(ctx context.Context, fn func(T) error) error {
	for {
		v, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// Cancel detaches s from the hub.
// An emit currently waiting on s stops waiting and skips it,
// and future emits exclude it.
// Cancel is idempotent.
func (s *Subscription[T]) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.s.canceled)

		s.h.mu.Lock()
		defer s.h.mu.Unlock()

		if s.h.subs.Remove(s.idx) {
			s.h.subscribersChangedLocked()
		}

		s.h.log.Debug("Canceled hub subscription", "name", s.h.name, "id", s.s.id)
	})
}
