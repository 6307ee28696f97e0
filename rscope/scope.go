// Package rscope contains [Scope],
// the explicit owner of hot stream producers.
//
// Hot producers run for as long as their scope.
// Passing the scope into a stream constructor,
// rather than relying on some ambient global context,
// keeps the producer's lifetime visible and testable.
package rscope

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ErrCanceled is the cause recorded by [*Scope.Cancel]
// when it is given a nil cause.
var ErrCanceled = errors.New("scope canceled")

// Scope owns a set of goroutines and the context they run under.
// Canceling the scope cancels that context;
// [*Scope.Wait] blocks until every goroutine started with [*Scope.Go] returns.
type Scope struct {
	log *slog.Logger

	ctx    context.Context
	cancel context.CancelCauseFunc

	g *errgroup.Group
}

// New returns a scope whose context is derived from parent.
// The scope is also canceled when parent is.
func New(parent context.Context, log *slog.Logger) *Scope {
	ctx, cancel := context.WithCancelCause(parent)
	return &Scope{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		g:      new(errgroup.Group),
	}
}

// Go runs fn in a new goroutine under the scope's context.
//
// An error returned from fn does not cancel the scope;
// it is logged, and the first such error is reported by [*Scope.Wait].
// Errors caused by the scope's own cancellation are not reported.
func (s *Scope) Go(name string, fn func(ctx context.Context) error) {
	s.g.Go(func() error {
		err := fn(s.ctx)
		if err == nil {
			return nil
		}

		if s.ctx.Err() != nil && errors.Is(err, context.Cause(s.ctx)) {
			return nil
		}

		s.log.Warn("Scoped goroutine returned error", "name", name, "err", err)
		return err
	})
}

// Context returns the scope's context.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Done is shorthand for s.Context().Done().
func (s *Scope) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Cancel cancels the scope with the given cause.
// A nil cause is recorded as [ErrCanceled].
// Calls after the first have no effect.
func (s *Scope) Cancel(cause error) {
	if cause == nil {
		cause = ErrCanceled
	}
	s.cancel(cause)
}

// Wait blocks until all goroutines started with [*Scope.Go] have returned,
// and returns the first non-cancellation error any of them returned.
//
// Wait does not cancel the scope;
// callers typically call Cancel first.
func (s *Scope) Wait() error {
	return s.g.Wait()
}
