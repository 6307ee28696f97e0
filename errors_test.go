package rivulet_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gordian-engine/rivulet"
	"github.com/stretchr/testify/require"
)

func TestAsProducerFailure(t *testing.T) {
	t.Parallel()

	t.Run("wraps plain errors", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		pf := rivulet.AsProducerFailure(boom)
		require.ErrorIs(t, pf, boom)
		require.Equal(t, "producer failed: boom", pf.Error())
	})

	t.Run("does not double wrap", func(t *testing.T) {
		t.Parallel()

		inner := &rivulet.ProducerFailureError{Err: errors.New("boom")}
		wrapped := fmt.Errorf("upstream: %w", inner)
		require.Same(t, inner, rivulet.AsProducerFailure(wrapped))
	})
}

func TestInvalidStateError_unwrapsCause(t *testing.T) {
	t.Parallel()

	err := error(&rivulet.InvalidStateError{Cause: rivulet.ErrScopeClosed})
	require.ErrorIs(t, err, rivulet.ErrScopeClosed)
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("passes errors through", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		err := rivulet.Run(context.Background(), func(context.Context, rivulet.Emitter[int]) error {
			return boom
		}, nil)
		require.Same(t, boom, err)
	})

	t.Run("recovers panics", func(t *testing.T) {
		t.Parallel()

		err := rivulet.Run(context.Background(), func(context.Context, rivulet.Emitter[int]) error {
			panic("kaboom")
		}, nil)

		var pf *rivulet.ProducerFailureError
		require.ErrorAs(t, err, &pf)

		var pe rivulet.PanicError
		require.ErrorAs(t, err, &pe)
		require.Equal(t, "kaboom", pe.Value)
	})

	t.Run("emits through emitter", func(t *testing.T) {
		t.Parallel()

		var got []int
		e := rivulet.EmitterFunc[int](func(_ context.Context, v int) error {
			got = append(got, v)
			return nil
		})
		err := rivulet.Run(context.Background(), func(ctx context.Context, e rivulet.Emitter[int]) error {
			for i := range 3 {
				if err := e.Emit(ctx, i); err != nil {
					return err
				}
			}
			return nil
		}, e)
		require.NoError(t, err)
		require.Equal(t, []int{0, 1, 2}, got)
	})
}
