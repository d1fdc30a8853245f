// Package observability provides OpenTelemetry tracing for Tabula pipelines.
//
// Until InitTracing or SetTracerProvider is called, spans go to the global
// otel provider, which is a no-op by default.
package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ajitpratap0/tabula"

var (
	tracer trace.Tracer = otel.Tracer(instrumentationName)
	mu     sync.RWMutex
)

// GetTracer returns the package tracer
func GetTracer() trace.Tracer {
	mu.RLock()
	defer mu.RUnlock()
	return tracer
}

// Span wraps a trace span and batches its attributes until End.
type Span struct {
	span       trace.Span
	startTime  time.Time
	attributes []attribute.KeyValue
}

// NewSpan starts a span named operationName.
func NewSpan(ctx context.Context, operationName string) (context.Context, *Span) {
	ctx, span := GetTracer().Start(ctx, operationName)

	return ctx, &Span{
		span:      span,
		startTime: time.Now(),
	}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	case []string:
		attr = attribute.StringSlice(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError marks the span as failed. A nil err marks it Ok.
func (s *Span) RecordError(err error) {
	if err == nil {
		s.span.SetStatus(codes.Ok, "")
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End flushes the batched attributes and ends the span.
func (s *Span) End() {
	s.attributes = append(s.attributes,
		attribute.Int64("duration_us", time.Since(s.startTime).Microseconds()))
	s.span.SetAttributes(s.attributes...)
	s.span.End()
}

// StageTracer names spans after one pipeline stage kind (input, step, output).
type StageTracer struct {
	kind     string
	pipeline string
}

// NewStageTracer creates a tracer for stages of kind within pipeline.
func NewStageTracer(kind, pipeline string) *StageTracer {
	return &StageTracer{kind: kind, pipeline: pipeline}
}

// StartSpan starts a span named "<kind>.<name>".
func (st *StageTracer) StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	ctx, span := NewSpan(ctx, st.kind+"."+name)
	span.SetAttribute("stage.kind", st.kind)
	span.SetAttribute("stage.name", name)
	if st.pipeline != "" {
		span.SetAttribute("pipeline", st.pipeline)
	}
	return ctx, span
}

// Trace runs fn inside a span and records the row count it reports.
func (st *StageTracer) Trace(ctx context.Context, name string, fn func(context.Context) (int, error)) error {
	ctx, span := st.StartSpan(ctx, name)
	defer span.End()

	rows, err := fn(ctx)
	span.SetAttribute("rows", rows)
	span.RecordError(err)
	return err
}
