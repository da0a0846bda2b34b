package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit_DisabledReturnsNoOpProvider(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "test-svc", Endpoint: "localhost:4317"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	_, span := StartTick(context.Background(), "aleph-node", "tick-1")
	assert.False(t, span.SpanContext().IsValid(), "no-op spans carry no context")
	span.End()
}

func TestInit_EnabledWithoutEndpointIsNoOp(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{Enabled: true, ServiceName: "test-svc"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartTickAndStep(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, tick := StartTick(context.Background(), "aleph-node", "tick-1")
	_, step := StartStep(ctx, "head")
	EndStep(step, errors.New("connection refused"))
	EndStep(tick, nil)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "watchdog.head", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())

	assert.Equal(t, "watchdog.tick", spans[1].Name())
	assert.Contains(t, spans[1].Attributes(), attribute.String("watchdog.target", "aleph-node"))
	assert.Contains(t, spans[1].Attributes(), attribute.String("watchdog.tick_id", "tick-1"))
}
