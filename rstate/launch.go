package rstate

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/rcold"
	"github.com/gordian-engine/rivulet/rscope"
)

// Launch returns a Cell holding initial,
// whose value is driven by p running in scope.
//
// p starts immediately, whether or not the cell has subscribers.
// Each value p emits is applied with [*Cell.Set],
// so emitting the current value again is a no-op.
//
// If p fails, the cell terminates with a [*rivulet.ProducerFailureError].
// If p returns normally, the cell keeps its last value.
// When scope is canceled, the cell terminates with [rivulet.ErrScopeClosed].
func Launch[T comparable](
	scope *rscope.Scope,
	log *slog.Logger,
	initial T,
	p rivulet.Producer[T],
	opts ...Option,
) *Cell[T] {
	c := New(log, initial, opts...)
	c.launch(scope, "rstate.Launch", p)
	return c
}

// StateIn returns a Cell holding initial,
// updated by a single collection of src running in scope.
func StateIn[T comparable](
	scope *rscope.Scope,
	log *slog.Logger,
	initial T,
	src *rcold.Source[T],
	opts ...Option,
) *Cell[T] {
	c := New(log, initial, opts...)
	c.launch(scope, "rstate.StateIn", func(ctx context.Context, e rivulet.Emitter[T]) error {
		return src.Collect(ctx, func(v T) error {
			return e.Emit(ctx, v)
		})
	})
	return c
}

func (c *Cell[T]) launch(scope *rscope.Scope, name string, p rivulet.Producer[T]) {
	context.AfterFunc(scope.Context(), func() {
		c.terminate(rivulet.ErrScopeClosed)
	})

	scope.Go(name, func(ctx context.Context) error {
		e := &producerEmitter[T]{c: c}
		err := rivulet.Run(ctx, p, e)
		e.closed.Store(true)

		if err == nil {
			c.log.Debug("State producer completed")
			return nil
		}

		if ctx.Err() != nil {
			// The AfterFunc handles termination.
			return nil
		}

		var ise *rivulet.InvalidStateError
		if errors.As(err, &ise) {
			// The cell was terminated by someone else while p was emitting.
			return nil
		}

		pf := rivulet.AsProducerFailure(err)
		c.terminate(pf)
		return pf
	})
}

// producerEmitter is the Emitter handed to a launched producer.
// It stops working once the producer returns.
type producerEmitter[T any] struct {
	c      *Cell[T]
	closed atomic.Bool
}

func (e *producerEmitter[T]) Emit(ctx context.Context, v T) error {
	if e.closed.Load() {
		return rivulet.ErrEmitterClosed
	}
	return e.c.Emit(ctx, v)
}
