package rhub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordian-engine/rivulet"
	"github.com/gordian-engine/rivulet/internal/rreg"
	"github.com/gordian-engine/rivulet/internal/rtrace"
	"github.com/gordian-engine/rivulet/rmetrics"
	"github.com/gordian-engine/rivulet/rstate"
)

// Hub is a multicast stream of values of type T.
//
// All methods are safe for concurrent use.
// Concurrent calls to Emit are serialized, so that every subscription
// observes values in the same order.
type Hub[T any] struct {
	log *slog.Logger

	name       string
	bufferSize int
	overflow   Overflow

	metrics *rmetrics.Stream
	tracer  rtrace.Tracer

	// Capacity one; holding the token grants the right to emit.
	// A channel rather than a mutex, so waiting emitters respect their context.
	emitting chan struct{}

	// Closed when the hub terminates.
	done chan struct{}

	count *rstate.Cell[int]

	mu sync.Mutex

	subs *rreg.Registry[*subscriber[T]]

	// Non-nil once the hub has terminated.
	terminal error
}

// subscriber is the hub-side half of a subscription.
type subscriber[T any] struct {
	id string

	// Capacity is the hub's buffer size.
	ch chan T

	canceled chan struct{}
}

// New returns a hub whose values are supplied by calls to [*Hub.Emit].
//
// New panics if cfg is invalid; see [Config.Validate].
func New[T any](log *slog.Logger, cfg Config) *Hub[T] {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Errorf("BUG: invalid hub config: %w", err))
	}

	return &Hub[T]{
		log: log,

		name:       cfg.Name,
		bufferSize: cfg.BufferSize,
		overflow:   cfg.Overflow,

		metrics: cfg.Metrics.Stream(cfg.Name),
		tracer:  rtrace.NewTracer(cfg.TracerProvider),

		emitting: make(chan struct{}, 1),
		done:     make(chan struct{}),

		count: rstate.New(log.With("cell", "subscription_count"), 0),

		subs: rreg.New[*subscriber[T]](4),
	}
}

// Emit delivers v to every subscription that is live when Emit is called.
//
// Emit returns once each of those subscriptions has accepted v,
// or buffered it, or discarded it according to the overflow policy.
// Subscriptions canceled while Emit waits on them are skipped.
// With no live subscriptions, v is discarded and Emit returns immediately.
//
// Emit returns context.Cause(ctx) if ctx is canceled first.
// After the hub terminates, Emit returns a [*rivulet.InvalidStateError].
func (h *Hub[T]) Emit(ctx context.Context, v T) error {
	ctx, span := rtrace.Start(ctx, h.tracer, "rhub.Emit", rtrace.StreamAttr(h.name))
	defer span.End()

	select {
	case <-ctx.Done():
		err := context.Cause(ctx)
		rtrace.SpanError(span, err)
		return err
	case <-h.done:
		err := h.invalidState()
		rtrace.SpanError(span, err)
		return err
	case h.emitting <- struct{}{}:
		// Okay.
	}
	defer func() { <-h.emitting }()

	h.mu.Lock()
	if h.terminal != nil {
		h.mu.Unlock()
		err := &rivulet.InvalidStateError{Cause: h.terminal}
		rtrace.SpanError(span, err)
		return err
	}
	subs := h.subs.Snapshot(nil)
	h.mu.Unlock()

	h.metrics.Emitted()
	span.SetAttributes(rtrace.SubscriberCountAttr(len(subs)))

	delivered := 0
	for _, s := range subs {
		ok, err := h.deliver(ctx, s, v)
		if err != nil {
			h.metrics.Delivered(delivered)
			rtrace.SpanError(span, err)
			return err
		}
		if ok {
			delivered++
		}
	}

	h.metrics.Delivered(delivered)
	span.SetAttributes(rtrace.DeliveredCountAttr(delivered))
	return nil
}

// deliver hands v to s according to the overflow policy.
// It reports whether s accepted v.
func (h *Hub[T]) deliver(ctx context.Context, s *subscriber[T], v T) (bool, error) {
	switch h.overflow {
	case DropLatest:
		select {
		case s.ch <- v:
			return true, nil
		default:
			h.metrics.Dropped()
			return false, nil
		}

	case DropOldest:
		for {
			select {
			case s.ch <- v:
				return true, nil
			default:
			}

			// Full; discard the oldest value.
			// The subscriber may have drained it concurrently,
			// in which case the next send attempt succeeds.
			select {
			case <-s.ch:
				h.metrics.Dropped()
			default:
			}
		}

	default:
		select {
		case <-ctx.Done():
			return false, context.Cause(ctx)
		case <-s.canceled:
			return false, nil
		case <-h.done:
			return false, h.invalidState()
		case s.ch <- v:
			return true, nil
		}
	}
}

// TryEmit delivers v only if it can do so without suspending,
// reporting whether it did.
//
// With the Suspend policy, TryEmit fails if any live subscription lacks
// buffer space; with a zero buffer size, that is any live subscription at all.
// TryEmit also fails if another emit is in progress or the hub has terminated.
func (h *Hub[T]) TryEmit(v T) bool {
	select {
	case h.emitting <- struct{}{}:
	default:
		return false
	}
	defer func() { <-h.emitting }()

	h.mu.Lock()
	if h.terminal != nil {
		h.mu.Unlock()
		return false
	}
	subs := h.subs.Snapshot(nil)
	h.mu.Unlock()

	if h.overflow == Suspend {
		// Only the emit token holder sends to subscriber channels,
		// so free space observed here cannot disappear before the send.
		for _, s := range subs {
			if len(s.ch) == cap(s.ch) {
				return false
			}
		}
	}

	h.metrics.Emitted()

	delivered := 0
	for _, s := range subs {
		if h.overflow == Suspend {
			select {
			case s.ch <- v:
				delivered++
			default:
			}
			continue
		}

		// Drop policies never suspend.
		if ok, _ := h.deliver(context.Background(), s, v); ok {
			delivered++
		}
	}
	h.metrics.Delivered(delivered)

	return true
}

// SubscriptionCount returns a cell tracking the number of live subscriptions.
// The cell terminates with the hub's terminal cause when the hub terminates.
func (h *Hub[T]) SubscriptionCount() *rstate.Cell[int] {
	return h.count
}

// Fail terminates the hub with a producer failure.
// Every live subscription observes a [*rivulet.ProducerFailureError]
// after draining any values already buffered for it,
// and later calls to Subscribe or Emit fail.
func (h *Hub[T]) Fail(err error) {
	h.terminate(rivulet.AsProducerFailure(err))
}

// Close is an owner-side teardown of the hub,
// equivalent to cancellation of the scope a launched hub runs in.
// It is not a normal completion:
// live subscriptions observe [rivulet.ErrStreamClosed] as a terminal cause,
// and later calls to Subscribe or Emit fail.
func (h *Hub[T]) Close() {
	h.terminate(rivulet.ErrStreamClosed)
}

// Done returns a channel that is closed once the hub has terminated.
func (h *Hub[T]) Done() <-chan struct{} {
	return h.done
}

// Err returns the terminal cause of the hub, or nil if it is still live.
func (h *Hub[T]) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminal
}

func (h *Hub[T]) invalidState() error {
	return &rivulet.InvalidStateError{Cause: h.Err()}
}

func (h *Hub[T]) terminate(cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.terminal != nil {
		return
	}

	h.terminal = cause
	close(h.done)

	n := len(h.subs.Clear())
	_, _ = h.count.Set(0)
	h.count.Terminate(cause)
	h.metrics.SetSubscribers(0)

	h.log.Info(
		"Hub terminated",
		"name", h.name,
		"cause", cause,
		"subscriptions", n,
	)
}
