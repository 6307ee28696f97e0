package rhub

import (
	"errors"
	"fmt"

	"github.com/gordian-engine/rivulet/internal/rtrace"
	"github.com/gordian-engine/rivulet/rmetrics"
)

// Overflow is the policy applied when a subscription's buffer is full.
type Overflow uint8

const (
	// Suspend makes the emitter wait until the subscriber makes room.
	// Every subscription receives every value.
	// This is the only policy allowed with a zero buffer size.
	Suspend Overflow = iota

	// DropOldest discards the oldest buffered value to make room.
	DropOldest

	// DropLatest discards the value being emitted,
	// for that subscription only.
	DropLatest
)

func (o Overflow) String() string {
	switch o {
	case Suspend:
		return "suspend"
	case DropOldest:
		return "drop_oldest"
	case DropLatest:
		return "drop_latest"
	default:
		return fmt.Sprintf("Overflow(%d)", uint8(o))
	}
}

// ParseOverflow is the inverse of [Overflow.String].
func ParseOverflow(s string) (Overflow, error) {
	switch s {
	case "", "suspend":
		return Suspend, nil
	case "drop_oldest":
		return DropOldest, nil
	case "drop_latest":
		return DropLatest, nil
	default:
		return 0, fmt.Errorf("unknown overflow policy %q", s)
	}
}

// Config is the configuration passed to [New], [Launch], and [ShareIn].
// The zero value is a valid rendezvous hub.
type Config struct {
	// Name identifies the hub in logs, metrics, and traces.
	Name string

	// BufferSize is the number of values each subscription may buffer
	// before the overflow policy applies.
	// Zero means rendezvous delivery.
	BufferSize int

	Overflow Overflow

	// Optional Prometheus collectors; nil disables metrics.
	Metrics *rmetrics.Metrics

	// Optional tracer provider; nil disables tracing.
	TracerProvider rtrace.TracerProvider
}

// Validate reports whether c describes a usable hub.
func (c Config) Validate() error {
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer size must not be negative (got %d)", c.BufferSize)
	}

	switch c.Overflow {
	case Suspend:
	case DropOldest, DropLatest:
		if c.BufferSize == 0 {
			return errors.New("drop overflow policies require a positive buffer size")
		}
	default:
		return fmt.Errorf("unknown overflow policy %s", c.Overflow)
	}

	return nil
}
