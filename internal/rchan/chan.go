// Package rchan contains small non-blocking channel helpers.
//
// Every suspension point in rivulet is a select over channels
// that includes the caller's context.
// A goroutine blocked in such a select parks without holding an OS thread,
// so unrelated streams keep making progress even with GOMAXPROCS=1.
package rchan

// Notify performs a non-blocking send on ch,
// which is expected to have a capacity of one.
// Repeated calls before the receiver wakes up
// coalesce into a single pending notification.
func Notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// IsClosed reports whether ch is closed, without blocking.
func IsClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
