// Package rtrace wraps the OpenTelemetry tracing API,
// so that stream packages only reference rtrace.
package rtrace

import (
	"context"

	otelattr "go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	otpnoop "go.opentelemetry.io/otel/trace/noop"
)

type TracerProvider = oteltrace.TracerProvider

type Tracer = oteltrace.Tracer

type Span = oteltrace.Span

type KeyValueAttr = otelattr.KeyValue

// Instrumentation name for every tracer created through [NewTracer].
const instrumentationName = "github.com/gordian-engine/rivulet"

// NopTracerProvider returns the otel no-op tracer provider.
// This is intended to use as a fallback when a nil tracer provider is given.
func NopTracerProvider() TracerProvider {
	return otpnoop.NewTracerProvider()
}

// NewTracer returns the rivulet tracer from tp,
// falling back to a no-op tracer when tp is nil.
func NewTracer(tp TracerProvider) Tracer {
	if tp == nil {
		tp = NopTracerProvider()
	}
	return tp.Tracer(instrumentationName)
}

// Start is shorthand for starting a span with attributes.
func Start(
	ctx context.Context, tr Tracer, name string, attrs ...KeyValueAttr,
) (context.Context, Span) {
	return tr.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// SpanError sets the given span to error status,
// with detail from err.Error(), and records err as an attribute.
func SpanError(span Span, err error) {
	span.SetStatus(otelcodes.Error, err.Error())
	span.SetAttributes(ErrorAttr(err))
}

// ErrorAttr returns an attribute with the key "err"
// and the lazily evaluated value of err's Error() method.
func ErrorAttr(err error) KeyValueAttr {
	return otelattr.Stringer("err", errStringer{err: err})
}

type errStringer struct {
	err error
}

func (e errStringer) String() string {
	return e.err.Error()
}

func StreamAttr(name string) KeyValueAttr {
	return otelattr.String("rivulet.stream", name)
}

func SubscriberCountAttr(n int) KeyValueAttr {
	return otelattr.Int("rivulet.subscribers", n)
}

func DeliveredCountAttr(n int) KeyValueAttr {
	return otelattr.Int("rivulet.delivered", n)
}
