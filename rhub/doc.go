// Package rhub contains [Hub], the hot broadcast stream.
//
// A Hub has one logical producer and any number of live subscriptions.
// A value emitted to the hub is delivered to every subscription
// that was live when the emit started, in emit order,
// and [*Hub.Emit] does not return until each of them has accepted it.
// With the default zero buffer size, that is a rendezvous:
// the producer runs at the pace of the slowest subscriber.
//
// Subscriptions never see values emitted before they subscribed,
// and a hub never completes normally.
// Reading from a subscription ends only through cancellation
// or through termination of the hub,
// which every live subscription observes.
// A hub terminates on a producer failure, on teardown of its owning scope,
// or when its owner calls [*Hub.Close]; none of these is a normal completion.
//
// The subscriber set is an indexed registry.
// Each emit snapshots the active entries under the hub's lock,
// so subscriptions added during an emit are excluded from that round,
// and subscriptions canceled during an emit are skipped.
package rhub
