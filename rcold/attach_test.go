package rcold_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rtest"
	"github.com/gordian-engine/rivulet/rcold"
	"github.com/stretchr/testify/require"
)

// ticker emits 0, 1, 2, ... forever,
// waiting for a signal on step between values when step is non-nil.
func ticker(step <-chan struct{}) *rcold.Source[int] {
	return rcold.New(func(ctx context.Context, e rivulet.Emitter[int]) error {
		for i := 0; ; i++ {
			if err := e.Emit(ctx, i); err != nil {
				return err
			}
			if step != nil {
				select {
				case <-ctx.Done():
					return context.Cause(ctx)
				case <-step:
				}
			}
		}
	})
}

func TestAttach_completes(t *testing.T) {
	t.Parallel()

	values := make(chan int, 3)
	completed := make(chan struct{})
	h := rcold.FromSlice([]int{1, 2, 3}).Attach(
		context.Background(), rtest.NewLogger(t),
		rcold.Observer[int]{
			OnValue: func(v int) error {
				values <- v
				return nil
			},
			OnError:    func(err error) { t.Errorf("unexpected error: %v", err) },
			OnComplete: func() { close(completed) },
		},
	)

	require.NoError(t, h.Wait())
	rtest.IsSending(t, completed)
	require.Equal(t, 1, rtest.IsSending(t, values))
	require.Equal(t, 2, rtest.IsSending(t, values))
	require.Equal(t, 3, rtest.IsSending(t, values))
}

func TestAttach_cancelOneDoesNotAffectOther(t *testing.T) {
	t.Parallel()

	log := rtest.NewLogger(t)

	// Unbuffered, so each value is observed before the next is produced.
	a := make(chan int)
	b := make(chan int)

	src := ticker(nil)

	observe := func(out chan<- int) rcold.Observer[int] {
		return rcold.Observer[int]{
			OnValue: func(v int) error {
				out <- v
				return nil
			},
			OnError: func(err error) { t.Errorf("unexpected error: %v", err) },
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ha := src.Attach(ctx, log, observe(a))
	hb := src.Attach(ctx, log, observe(b))

	require.Equal(t, 0, rtest.ReceiveSoon(t, a))
	require.Equal(t, 0, rtest.ReceiveSoon(t, b))

	ha.Cancel()

	// a may have been blocked sending 1 when the cancel arrived;
	// drain until the handle reports done.
	for done := false; !done; {
		select {
		case <-a:
		case <-ha.Done():
			done = true
		}
	}
	require.ErrorIs(t, ha.Err(), rcold.ErrDetached)

	// b keeps counting from where it was.
	require.Equal(t, 1, rtest.ReceiveSoon(t, b))
	require.Equal(t, 2, rtest.ReceiveSoon(t, b))

	rtest.NotSending(t, hb.Done())
	require.NoError(t, hb.Err())

	hb.Cancel()
	for done := false; !done; {
		select {
		case <-b:
		case <-hb.Done():
			done = true
		}
	}
}

func TestAttach_failureStaysWithFailingAttachment(t *testing.T) {
	t.Parallel()

	log := rtest.NewLogger(t)
	boom := errors.New("boom")

	// Each execution takes a distinct attempt number.
	attemptCh := make(chan int, 2)
	attemptCh <- 0
	attemptCh <- 1

	src := rcold.New(func(ctx context.Context, e rivulet.Emitter[int]) error {
		n := <-attemptCh
		if err := e.Emit(ctx, n); err != nil {
			return err
		}
		if n == 0 {
			return boom
		}
		return nil
	})

	errCh := make(chan error, 2)
	completeCh := make(chan struct{}, 2)
	obs := rcold.Observer[int]{
		OnError:    func(err error) { errCh <- err },
		OnComplete: func() { completeCh <- struct{}{} },
	}

	h1 := src.Attach(context.Background(), log, obs)
	h2 := src.Attach(context.Background(), log, obs)
	err1, err2 := h1.Wait(), h2.Wait()

	// Exactly one of the two executions received attempt 0 and failed.
	if err1 == nil {
		err1, err2 = err2, err1
	}
	require.ErrorIs(t, err1, boom)
	require.NoError(t, err2)

	require.ErrorIs(t, rtest.IsSending(t, errCh), boom)
	rtest.IsSending(t, completeCh)
	rtest.NotSending(t, errCh)
}

func TestAttach_observerErrorStopsAttachment(t *testing.T) {
	t.Parallel()

	stop := errors.New("no more")
	errCh := make(chan error, 1)
	h := ticker(nil).Attach(context.Background(), rtest.NewLogger(t), rcold.Observer[int]{
		OnValue: func(v int) error {
			if v == 2 {
				return stop
			}
			return nil
		},
		OnError: func(err error) { errCh <- err },
	})

	require.ErrorIs(t, h.Wait(), stop)
	require.ErrorIs(t, rtest.IsSending(t, errCh), stop)
}

func TestAttach_parentContextCancellationIsSilent(t *testing.T) {
	t.Parallel()

	step := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	h := ticker(step).Attach(ctx, rtest.NewLogger(t), rcold.Observer[int]{
		OnError:    func(err error) { t.Errorf("cancellation must not be reported: %v", err) },
		OnComplete: func() { t.Error("canceled attachment must not complete") },
	})

	rtest.SendSoon(t, step, struct{}{})
	cancel()

	rtest.ReceiveSoon(t, h.Done())
	require.ErrorIs(t, h.Err(), context.Canceled)
}
