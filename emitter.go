package rivulet

import "context"

// Emitter is the capability handed to a [Producer]
// for passing values to a stream.
//
// Emit suspends until the delivery contract of the stream is satisfied:
// a cold source waits for its single consumer,
// a hub waits for every subscription live at the start of the emit,
// and a cell only waits to replace its current value.
//
// Emit returns a non-nil error when the value could not be delivered,
// for instance because ctx was canceled or the consumer failed.
// Producers should return that error unchanged.
type Emitter[T any] interface {
	Emit(ctx context.Context, v T) error
}

// Producer is the function wrapped by a stream.
//
// Returning nil indicates normal completion.
// Returning any other error, or panicking, is a producer failure.
type Producer[T any] func(ctx context.Context, e Emitter[T]) error

// EmitterFunc adapts a plain function to the [Emitter] interface.
type EmitterFunc[T any] func(ctx context.Context, v T) error

func (f EmitterFunc[T]) Emit(ctx context.Context, v T) error {
	return f(ctx, v)
}

// Run calls p with e, converting a panic in p into a [*ProducerFailureError].
// A non-nil error returned by p is passed through as is.
func Run[T any](ctx context.Context, p Producer[T], e Emitter[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ProducerFailureError{Err: PanicError{Value: r}}
		}
	}()

	return p(ctx, e)
}
