// Package rivulet contains the types shared by the rivulet stream packages.
//
// The module provides three in-process stream kinds,
// which differ in when producer code runs and how values reach consumers:
//
//   - [github.com/gordian-engine/rivulet/rcold] sources are cold.
//     The producer runs again, independently, for every attachment.
//   - [github.com/gordian-engine/rivulet/rhub] hubs are hot.
//     One producer multicasts to every live subscription,
//     and each emit waits for the slowest subscriber.
//   - [github.com/gordian-engine/rivulet/rstate] cells are hot state holders.
//     They always hold a current value, replay it to new subscribers,
//     drop equal updates, and conflate values for slow readers.
//
// Hot producers are started inside an explicit
// [github.com/gordian-engine/rivulet/rscope.Scope],
// which controls their lifetime.
package rivulet
