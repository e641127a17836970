package member

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attrValue(attrs []attribute.KeyValue, key string) (string, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func TestOperationSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t, WithTracer(tp.Tracer(TracerName)))
	reg := f.registerCars(t, FlagPublisher)
	x := f.router.Begin()

	f.mustCreate(t, x, reg, "Toyota", "Corolla")
	_, err := f.c.Get(f.ctx, nil, reg, brand("Honda"))
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 2)

	create := spans[0]
	assert.Equal(t, SpanPrefix+"create", create.Name())
	assert.Equal(t, codes.Ok, create.Status().Code)
	v, ok := attrValue(create.Attributes(), AttrXact)
	require.True(t, ok)
	assert.Equal(t, x.ID(), v)
	v, _ = attrValue(create.Attributes(), AttrCategory)
	assert.Equal(t, "config", v)

	get := spans[1]
	assert.Equal(t, SpanPrefix+"get", get.Name())
	assert.Equal(t, codes.Error, get.Status().Code)
	v, ok = attrValue(get.Attributes(), AttrCode)
	require.True(t, ok)
	assert.Equal(t, string(CodeNotFound), v)
	_, ok = attrValue(get.Attributes(), AttrXact)
	assert.False(t, ok)
	require.Len(t, get.Events(), 1, "error is recorded on the span")
}
