package rstate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rchan"
	"github.com/gordian-engine/rivulet/internal/rreg"
	"github.com/gordian-engine/rivulet/rmetrics"
)

// Cell is a conflated, deduplicated state holder for values of type T.
//
// All methods are safe for concurrent use.
type Cell[T any] struct {
	log *slog.Logger

	equal func(a, b T) bool

	metrics *rmetrics.Stream

	// Closed when the cell terminates.
	done chan struct{}

	mu sync.Mutex

	val T

	// Incremented on every change of val.
	// Subscriptions compare against it to detect unseen values.
	version uint64

	watchers *rreg.Registry[*watcher]

	// Non-nil once the cell has terminated.
	terminal error
}

// watcher is the cell-side half of a subscription.
type watcher struct {
	// Capacity one; a pending signal means "current value not yet observed".
	dirty chan struct{}

	canceled chan struct{}
}

// Option customizes a Cell at construction.
type Option func(*options)

type options struct {
	metrics *rmetrics.Stream
}

// WithMetrics reports the cell's activity to m under the given stream name.
func WithMetrics(m *rmetrics.Metrics, name string) Option {
	return func(o *options) {
		o.metrics = m.Stream(name)
	}
}

// New returns a Cell holding initial,
// comparing values with the == operator.
func New[T comparable](log *slog.Logger, initial T, opts ...Option) *Cell[T] {
	return NewFunc(log, initial, func(a, b T) bool { return a == b }, opts...)
}

// NewFunc returns a Cell holding initial,
// comparing values with equal.
// Use NewFunc for types that are not comparable,
// or whose equality is not the == operator.
func NewFunc[T any](
	log *slog.Logger, initial T, equal func(a, b T) bool, opts ...Option,
) *Cell[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Cell[T]{
		log:     log,
		equal:   equal,
		metrics: o.metrics,

		done: make(chan struct{}),

		val:     initial,
		version: 1,

		watchers: rreg.New[*watcher](4),
	}
}

// Value returns the current value without suspending.
// After the cell terminates, Value returns a [*rivulet.InvalidStateError].
func (c *Cell[T]) Value() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal != nil {
		var zero T
		return zero, &rivulet.InvalidStateError{Cause: c.terminal}
	}

	return c.val, nil
}

// Set replaces the current value with v and notifies every live subscription.
// If v equals the current value, Set does nothing and reports false.
//
// Set never waits for subscribers.
func (c *Cell[T]) Set(v T) (changed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal != nil {
		return false, &rivulet.InvalidStateError{Cause: c.terminal}
	}

	if c.equal(c.val, v) {
		c.metrics.Deduplicated()
		return false, nil
	}

	c.storeLocked(v)
	return true, nil
}

// CompareAndSet sets the current value to v
// only if the current value equals expect.
// It reports whether the current value equaled expect.
// When expect matches and v also equals the current value,
// CompareAndSet reports true without notifying subscribers.
func (c *Cell[T]) CompareAndSet(expect, v T) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal != nil {
		return false, &rivulet.InvalidStateError{Cause: c.terminal}
	}

	if !c.equal(c.val, expect) {
		return false, nil
	}

	if c.equal(c.val, v) {
		c.metrics.Deduplicated()
		return true, nil
	}

	c.storeLocked(v)
	return true, nil
}

// Update atomically replaces the current value with fn(current).
//
// fn is called without holding the cell's lock,
// so it may be called more than once if other writers race with it;
// it must be free of side effects.
func (c *Cell[T]) Update(fn func(T) T) error {
	for {
		cur, err := c.Value()
		if err != nil {
			return err
		}

		ok, err := c.CompareAndSet(cur, fn(cur))
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
}

// storeLocked writes v and marks every watcher dirty.
// The caller must hold c.mu.
func (c *Cell[T]) storeLocked(v T) {
	c.val = v
	c.version++

	n := 0
	for idx := range c.watchers.All() {
		w, _ := c.watchers.Get(idx)
		rchan.Notify(w.dirty)
		n++
	}

	c.metrics.Emitted()
	c.metrics.Delivered(n)
}

// Emit implements [rivulet.Emitter] by calling [*Cell.Set].
// Emit only suspends long enough to check ctx.
func (c *Cell[T]) Emit(ctx context.Context, v T) error {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}

	_, err := c.Set(v)
	return err
}

// Fail terminates the cell with a producer failure.
// Every live subscription observes a [*rivulet.ProducerFailureError]
// after the last value it has not yet seen,
// and later calls to Subscribe, Value, or Set fail.
func (c *Cell[T]) Fail(err error) {
	c.terminate(rivulet.AsProducerFailure(err))
}

// Close terminates the cell without a failure.
// Live subscriptions observe [rivulet.ErrStreamClosed].
func (c *Cell[T]) Close() {
	c.terminate(rivulet.ErrStreamClosed)
}

// Terminate ends the cell with cause, recorded as is.
// It is intended for cells whose lifetime is tied to another stream,
// so that they end with the same cause.
// Terminate panics if cause is nil.
func (c *Cell[T]) Terminate(cause error) {
	if cause == nil {
		panic(errors.New("BUG: Terminate called with nil cause"))
	}
	c.terminate(cause)
}

// Done returns a channel that is closed once the cell has terminated.
func (c *Cell[T]) Done() <-chan struct{} {
	return c.done
}

// Err returns the terminal cause of the cell, or nil if it is still live.
func (c *Cell[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminal
}

func (c *Cell[T]) terminate(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminal != nil {
		return
	}

	c.terminal = cause
	close(c.done)

	n := len(c.watchers.Clear())
	c.metrics.SetSubscribers(0)

	c.log.Info(
		"State cell terminated",
		"cause", cause,
		"subscriptions", n,
	)
}
