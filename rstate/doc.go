// Package rstate contains [Cell], the hot state holder.
//
// A Cell always holds exactly one current value.
// New subscriptions observe the current value first,
// and then observe later values as they change.
//
// Setting a value equal to the current one is a complete no-op.
//
// Delivery is conflated rather than queued:
// the cell stores a single value and marks each subscription "dirty" on change.
// A subscription that falls behind skips intermediate values
// and observes only the latest value on its next read,
// so writers never wait for slow readers.
package rstate
