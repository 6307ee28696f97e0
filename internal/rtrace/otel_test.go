package rtrace_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gordian-engine/rivulet/internal/rtrace"
	"github.com/stretchr/testify/require"
)

func TestNewTracer_nilProviderIsNoop(t *testing.T) {
	t.Parallel()

	tr := rtrace.NewTracer(nil)
	ctx, span := rtrace.Start(
		context.Background(), tr, "test",
		rtrace.StreamAttr("s"), rtrace.SubscriberCountAttr(2),
	)
	defer span.End()

	require.NotNil(t, ctx)
	require.False(t, span.SpanContext().IsValid())

	// Must not panic on a no-op span.
	rtrace.SpanError(span, errors.New("boom"))
}

func TestErrorAttr(t *testing.T) {
	t.Parallel()

	a := rtrace.ErrorAttr(errors.New("boom"))
	require.Equal(t, "err", string(a.Key))
	require.Equal(t, "boom", a.Value.Emit())
}
