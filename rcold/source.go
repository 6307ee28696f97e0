package rcold

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gordian-engine/rivulet"
)

// Source is a cold stream of values of type T.
// A Source is immutable and may be collected
// any number of times, concurrently.
type Source[T any] struct {
	p rivulet.Producer[T]
}

// New returns a Source wrapping p.
// p is not called until the Source is collected.
func New[T any](p rivulet.Producer[T]) *Source[T] {
	if p == nil {
		panic(errors.New("BUG: rcold.New called with nil producer"))
	}
	return &Source[T]{p: p}
}

// FromSlice returns a Source that emits each element of vs in order.
// The slice is read on every collection, so the caller must not modify it.
func FromSlice[T any](vs []T) *Source[T] {
	return New(func(ctx context.Context, e rivulet.Emitter[T]) error {
		for _, v := range vs {
			if err := e.Emit(ctx, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Collect runs a fresh execution of the producer in the calling goroutine,
// passing every emitted value to fn.
//
// Collect returns nil when the producer completes normally.
// If fn returns an error, the producer's Emit call returns that error
// and Collect returns it unwrapped once the producer returns.
// If ctx is canceled, Collect returns context.Cause(ctx).
// Any other producer error, or a producer panic,
// is returned as a [*rivulet.ProducerFailureError].
func (s *Source[T]) Collect(ctx context.Context, fn func(T) error) error {
	e := &emitter[T]{fn: fn}

	err := rivulet.Run(ctx, s.p, e)
	e.closed.Store(true)

	if err == nil {
		return nil
	}

	if e.consumerErr != nil && errors.Is(err, e.consumerErr) {
		return e.consumerErr
	}

	if ctx.Err() != nil && errors.Is(err, context.Cause(ctx)) {
		return context.Cause(ctx)
	}

	return rivulet.AsProducerFailure(err)
}

// emitter is the Emitter bound to a single collection.
// It calls the consumer directly,
// so Emit cannot return before the consumer has accepted the value.
type emitter[T any] struct {
	fn func(T) error

	// Set by the producer goroutine only.
	consumerErr error

	// Set once the producer has returned,
	// in case the producer leaked the emitter to another goroutine.
	closed atomic.Bool
}

func (e *emitter[T]) Emit(ctx context.Context, v T) error {
	if e.closed.Load() {
		return rivulet.ErrEmitterClosed
	}

	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}

	if e.consumerErr != nil {
		// The consumer already refused a value.
		return e.consumerErr
	}

	if err := e.fn(v); err != nil {
		e.consumerErr = err
		return err
	}

	return nil
}
