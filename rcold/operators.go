package rcold

import (
	"context"
	"errors"

	"github.com/gordian-engine/rivulet"
)

// Map returns a Source emitting fn(v) for every v emitted by src.
// Each collection of the result collects src afresh.
func Map[T, U any](src *Source[T], fn func(T) U) *Source[U] {
	return New(func(ctx context.Context, e rivulet.Emitter[U]) error {
		return src.Collect(ctx, func(v T) error {
			return e.Emit(ctx, fn(v))
		})
	})
}

// Filter returns a Source emitting only the values of src
// for which keep returns true.
func Filter[T any](src *Source[T], keep func(T) bool) *Source[T] {
	return New(func(ctx context.Context, e rivulet.Emitter[T]) error {
		return src.Collect(ctx, func(v T) error {
			if !keep(v) {
				return nil
			}
			return e.Emit(ctx, v)
		})
	})
}

// errTakeDone stops the upstream collection once enough values were taken.
// Each collection creates its own instance,
// so that nested Take sources cannot confuse each other's signal.
// The field keeps the type non-zero-size, so that distinct instances
// have distinct addresses.
type errTakeDone struct{ _ byte }

func (*errTakeDone) Error() string { return "take limit reached" }

// Take returns a Source emitting at most the first n values of src.
// Once n values have been emitted, the upstream producer is stopped
// and the collection completes normally.
// This turns an unbounded producer into a bounded one.
func Take[T any](src *Source[T], n int) *Source[T] {
	return New(func(ctx context.Context, e rivulet.Emitter[T]) error {
		if n <= 0 {
			return nil
		}

		done := new(errTakeDone)
		taken := 0
		err := src.Collect(ctx, func(v T) error {
			if err := e.Emit(ctx, v); err != nil {
				return err
			}
			taken++
			if taken >= n {
				return done
			}
			return nil
		})

		if errors.Is(err, done) {
			return nil
		}
		return err
	})
}
