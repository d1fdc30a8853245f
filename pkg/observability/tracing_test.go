package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := GetTracer()
	SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() {
		mu.Lock()
		tracer = prev
		mu.Unlock()
	})
	return recorder
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value
	}
	return m
}

func TestStageTracerRecordsRows(t *testing.T) {
	recorder := recordSpans(t)

	st := NewStageTracer("step", "daily")
	err := st.Trace(context.Background(), "join", func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "step.join", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := attrMap(spans[0].Attributes())
	assert.Equal(t, int64(42), attrs["rows"].AsInt64())
	assert.Equal(t, "daily", attrs["pipeline"].AsString())
	assert.Equal(t, "join", attrs["stage.name"].AsString())
}

func TestStageTracerRecordsError(t *testing.T) {
	recorder := recordSpans(t)

	boom := errors.New("boom")
	err := NewStageTracer("input", "").Trace(context.Background(), "users", func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	assert.NotContains(t, attrMap(spans[0].Attributes()), "pipeline")
}

func TestInitTracingExportsToWriter(t *testing.T) {
	prev := GetTracer()
	t.Cleanup(func() {
		mu.Lock()
		tracer = prev
		mu.Unlock()
	})

	var buf bytes.Buffer
	cfg := DefaultTracingConfig()
	cfg.Writer = &buf
	shutdown, err := InitTracing(cfg)
	require.NoError(t, err)

	_, span := NewSpan(context.Background(), "load")
	span.SetAttribute("format", "tsv")
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"Name":"load"`)
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}
