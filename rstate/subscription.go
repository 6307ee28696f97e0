package rstate

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rchan"
)

// Subscription is a live view of a [Cell].
//
// The first call to Next returns the cell's value at the time of Subscribe
// (or a newer one), without suspending.
// Later calls return the latest value each time the value changes,
// skipping values that were superseded before they were read.
//
// Next must not be called concurrently with itself.
// Cancel may be called from any goroutine.
type Subscription[T any] struct {
	c *Cell[T]
	w *watcher

	id  string
	idx uint

	// Version of the last value returned from Next; zero before the first.
	seen uint64

	cancelOnce sync.Once
}

// Subscribe registers a new subscription.
// After the cell terminates,
// Subscribe returns a [*rivulet.InvalidStateError].
func (c *Cell[T]) Subscribe() (*Subscription[T], error) {
	w := &watcher{
		dirty:    make(chan struct{}, 1),
		canceled: make(chan struct{}),
	}

	// The current value has not been observed yet.
	w.dirty <- struct{}{}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal != nil {
		return nil, &rivulet.InvalidStateError{Cause: c.terminal}
	}

	s := &Subscription[T]{
		c:   c,
		w:   w,
		id:  uuid.NewString(),
		idx: c.watchers.Add(w),
	}

	c.metrics.SetSubscribers(c.watchers.Len())
	c.log.Debug("Added state subscription", "id", s.id)

	return s, nil
}

// ID returns the unique identifier of the subscription, for logging.
func (s *Subscription[T]) ID() string {
	return s.id
}

// Next returns the latest value not yet observed by s,
// suspending until the value changes if s is up to date.
//
// If ctx is canceled, Next returns context.Cause(ctx).
// If s was canceled, Next returns [rivulet.ErrSubscriptionCanceled].
// If the cell terminated, Next first returns any value s had not yet seen,
// and then returns the cell's terminal cause.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	var zero T

	for {
		if rchan.IsClosed(s.w.canceled) {
			return zero, rivulet.ErrSubscriptionCanceled
		}

		select {
		case <-ctx.Done():
			return zero, context.Cause(ctx)

		case <-s.w.canceled:
			return zero, rivulet.ErrSubscriptionCanceled

		case <-s.w.dirty:
			if v, ok := s.takeLatest(); ok {
				return v, nil
			}
			// Spurious wakeup: the value was already observed.

		case <-s.c.done:
			if v, ok := s.takeLatest(); ok {
				return v, nil
			}
			return zero, s.c.Err()
		}
	}
}

// takeLatest returns the cell's value if its version differs from s.seen.
func (s *Subscription[T]) takeLatest() (T, bool) {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.c.version == s.seen {
		var zero T
		return zero, false
	}

	s.seen = s.c.version
	return s.c.val, true
}

// Collect calls fn with every value observed by s, as with Next.
// Collect only returns on error: from ctx, from fn,
// from cancellation of s, or from termination of the cell.
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

// Cancel detaches s from the cell.
// Pending and future calls to Next return [rivulet.ErrSubscriptionCanceled].
// Cancel is idempotent.
func (s *Subscription[T]) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.w.canceled)

		s.c.mu.Lock()
		defer s.c.mu.Unlock()

		if s.c.watchers.Remove(s.idx) {
			s.c.metrics.SetSubscribers(s.c.watchers.Len())
		}

		s.c.log.Debug("Canceled state subscription", "id", s.id)
	})
}
