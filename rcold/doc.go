// Package rcold contains [Source], the cold stream.
//
// A Source wraps a [rivulet.Producer].
// Nothing runs when the Source is created;
// every call to [*Source.Collect] or [*Source.Attach]
// starts a brand-new, isolated execution of the producer,
// bound to exactly one consumer.
//
// Emitting from a cold producer is a one-to-one rendezvous:
// Emit returns only after the consumer callback has accepted the value.
package rcold
