// Package rtest contains helpers shared by rivulet tests.
package rtest

import (
	"log/slog"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
)

// How long the "soon" helpers wait before failing.
const soonTimeout = 2 * time.Second

// How long NotSending waits to be reasonably sure nothing is ready.
const notSendingWindow = 20 * time.Millisecond

// NewLogger returns a logger that writes through t.Log,
// so output is associated with the test that produced it.
func NewLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slogt.New(t)
}

// ReceiveSoon returns the next value from ch,
// failing the test if no value arrives within a short timeout.
func ReceiveSoon[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	timer := time.NewTimer(soonTimeout)
	defer timer.Stop()

	select {
	case v := <-ch:
		return v
	case <-timer.C:
		t.Fatalf("timed out waiting to receive value")
		var zero T
		return zero
	}
}

// SendSoon sends v on ch,
// failing the test if the send does not complete within a short timeout.
func SendSoon[T any](t testing.TB, ch chan<- T, v T) {
	t.Helper()

	timer := time.NewTimer(soonTimeout)
	defer timer.Stop()

	select {
	case ch <- v:
	case <-timer.C:
		t.Fatalf("timed out waiting to send value")
	}
}

// IsSending fails the test if ch does not have a value
// immediately ready to receive.
func IsSending[T any](t testing.TB, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	default:
		t.Fatalf("expected channel to be sending")
		var zero T
		return zero
	}
}

// NotSending fails the test if a value arrives on ch
// during a short observation window.
func NotSending[T any](t testing.TB, ch <-chan T) {
	t.Helper()

	timer := time.NewTimer(notSendingWindow)
	defer timer.Stop()

	select {
	case <-ch:
		t.Fatalf("expected channel not to be sending")
	case <-timer.C:
	}
}
