package rhub

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/rcold"
	"github.com/gordian-engine/rivulet/rscope"
)

// Launch returns a hub driven by p, which starts running in scope immediately,
// independent of whether the hub has any subscriptions.
//
// If p fails, the hub terminates with a [*rivulet.ProducerFailureError]
// that every live subscription observes.
// If p returns normally, the hub stays live but receives no more values.
// When scope is canceled, the hub terminates with [rivulet.ErrScopeClosed].
func Launch[T any](
	scope *rscope.Scope,
	log *slog.Logger,
	cfg Config,
	p rivulet.Producer[T],
) *Hub[T] {
	h := New[T](log, cfg)
	h.launch(scope, "rhub.Launch", p)
	return h
}

// ShareIn returns a hub multicasting a single collection of src,
// running in scope.
func ShareIn[T any](
	scope *rscope.Scope,
	log *slog.Logger,
	cfg Config,
	src *rcold.Source[T],
) *Hub[T] {
	h := New[T](log, cfg)
	h.launch(scope, "rhub.ShareIn", func(ctx context.Context, e rivulet.Emitter[T]) error {
		return src.Collect(ctx, func(v T) error {
			return e.Emit(ctx, v)
		})
	})
	return h
}

// FromChannel returns a hub that publishes every value received from ch,
// running in scope.
// Closing ch is normal completion: the hub stays live but idle.
func FromChannel[T any](
	scope *rscope.Scope,
	log *slog.Logger,
	cfg Config,
	ch <-chan T,
) *Hub[T] {
	h := New[T](log, cfg)
	h.launch(scope, "rhub.FromChannel", func(ctx context.Context, e rivulet.Emitter[T]) error {
		for {
			select {
			case <-ctx.Done():
				return context.Cause(ctx)

			case v, ok := <-ch:
				if !ok {
					return nil
				}
				if err := e.Emit(ctx, v); err != nil {
					return err
				}
			}
		}
	})
	return h
}

func (h *Hub[T]) launch(scope *rscope.Scope, name string, p rivulet.Producer[T]) {
	context.AfterFunc(scope.Context(), func() {
		h.terminate(rivulet.ErrScopeClosed)
	})

	scope.Go(name, func(ctx context.Context) error {
		e := &producerEmitter[T]{h: h}
		err := rivulet.Run(ctx, p, e)
		e.closed.Store(true)

		if err == nil {
			h.log.Debug("Hub producer completed", "name", h.name)
			return nil
		}

		if ctx.Err() != nil {
			// The AfterFunc handles termination.
			return nil
		}

		var ise *rivulet.InvalidStateError
		if errors.As(err, &ise) {
			// The hub was terminated by someone else while p was emitting.
			return nil
		}

		pf := rivulet.AsProducerFailure(err)
		h.terminate(pf)
		return pf
	})
}

// producerEmitter is the Emitter handed to a launched producer.
// It stops working once the producer returns.
type producerEmitter[T any] struct {
	h      *Hub[T]
	closed atomic.Bool
}

func (e *producerEmitter[T]) Emit(ctx context.Context, v T) error {
	if e.closed.Load() {
		return rivulet.ErrEmitterClosed
	}
	return e.h.Emit(ctx, v)
}
