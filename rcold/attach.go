package rcold

import (
	"context"
	"errors"
	"log/slog"
)

// Observer receives the outcome of a single attachment.
// Any nil callback is skipped.
type Observer[T any] struct {
	// OnValue is called for each emitted value, in order.
	// Returning an error stops the attachment;
	// that error is then passed to OnError.
	OnValue func(T) error

	// OnError is called at most once, when the attachment fails.
	// It is not called for cancellation.
	OnError func(error)

	// OnComplete is called at most once,
	// when the producer returns normally.
	OnComplete func()
}

// Handle controls one attachment started by [*Source.Attach].
type Handle struct {
	cancel context.CancelCauseFunc

	done chan struct{}

	// Written before done is closed.
	err error
}

// ErrDetached is the cancellation cause recorded by [*Handle.Cancel].
var ErrDetached = errors.New("attachment canceled")

// Attach starts a fresh execution of the producer in a new goroutine,
// feeding values to obs.
//
// The execution stops when the producer returns,
// when obs.OnValue returns an error,
// when ctx is canceled, or when the returned Handle is canceled.
// Canceling one attachment never affects any other attachment
// of the same Source.
func (s *Source[T]) Attach(ctx context.Context, log *slog.Logger, obs Observer[T]) *Handle {
	ctx, cancel := context.WithCancelCause(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go s.runAttachment(ctx, log, obs, h)

	return h
}

func (s *Source[T]) runAttachment(
	ctx context.Context,
	log *slog.Logger,
	obs Observer[T],
	h *Handle,
) {
	defer close(h.done)
	defer h.cancel(nil)

	onValue := obs.OnValue
	if onValue == nil {
		onValue = func(T) error { return nil }
	}

	err := s.Collect(ctx, onValue)
	h.err = err

	switch {
	case err == nil:
		if obs.OnComplete != nil {
			obs.OnComplete()
		}

	case ctx.Err() != nil && errors.Is(err, context.Cause(ctx)):
		log.Debug(
			"Attachment stopped due to context cancellation",
			"cause", err,
		)

	default:
		log.Info("Attachment failed", "err", err)
		if obs.OnError != nil {
			obs.OnError(err)
		}
	}
}

// Cancel stops the attachment.
// The cancellation is observed at the producer's next Emit call at the latest.
// Cancel does not wait for the producer to return; use [*Handle.Wait] for that.
func (h *Handle) Cancel() {
	h.cancel(ErrDetached)
}

// Done returns a channel that is closed once the attachment has stopped
// and every Observer callback has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the attachment stops, and returns [*Handle.Err].
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Err returns the error that stopped the attachment,
// or nil if it completed normally or has not yet stopped.
// For a canceled attachment, Err returns the cancellation cause.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}
