package rivulet

import (
	"errors"
	"fmt"
)

var (
	// ErrScopeClosed is the terminal cause of a hot stream
	// whose owning scope was canceled.
	ErrScopeClosed = errors.New("owning scope closed")

	// ErrSubscriptionCanceled is returned from reads
	// on a subscription that was canceled.
	ErrSubscriptionCanceled = errors.New("subscription canceled")

	// ErrEmitterClosed is returned when an [Emitter]
	// is used after its producer has returned.
	ErrEmitterClosed = errors.New("emitter used after producer returned")

	// ErrStreamClosed is the terminal cause of a hot stream
	// that was closed directly, without a failure.
	ErrStreamClosed = errors.New("stream closed")
)

// ProducerFailureError indicates that a producer returned an error or panicked.
//
// For a cold source, only the single failing attachment observes it.
// For a hub or cell, it is terminal and observed by every live subscription.
type ProducerFailureError struct {
	Err error
}

func (e *ProducerFailureError) Error() string {
	return "producer failed: " + e.Err.Error()
}

func (e *ProducerFailureError) Unwrap() error {
	return e.Err
}

// AsProducerFailure wraps err in a [*ProducerFailureError],
// unless err already contains one.
func AsProducerFailure(err error) *ProducerFailureError {
	var pf *ProducerFailureError
	if errors.As(err, &pf) {
		return pf
	}
	return &ProducerFailureError{Err: err}
}

// InvalidStateError is returned when subscribing to or reading from
// a hot stream that has already terminated.
// Cause holds the reason the stream terminated.
type InvalidStateError struct {
	Cause error
}

func (e *InvalidStateError) Error() string {
	return "stream in invalid state: " + e.Cause.Error()
}

func (e *InvalidStateError) Unwrap() error {
	return e.Cause
}

// PanicError wraps a value recovered from a panicking producer.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
