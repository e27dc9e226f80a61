package observer

import (
	"context"
	"fmt"
	"time"

	"github.com/nevindra/docrag"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// otelTracer implements docrag.Tracer using OpenTelemetry.
type otelTracer struct {
	inner trace.Tracer
}

var (
	_ docrag.Tracer = (*otelTracer)(nil)
	_ docrag.Span   = (*otelSpan)(nil)
)

// NewTracer returns a docrag.Tracer backed by the global OTEL TracerProvider.
// Call observer.Init() first to configure the provider; otherwise spans go to
// a no-op backend.
func NewTracer() docrag.Tracer {
	return &otelTracer{inner: otel.Tracer(scopeName)}
}

// TracerFor returns a docrag.Tracer that starts spans on inst.Tracer, so
// pipeline spans and wrapper spans share one provider.
func TracerFor(inst *Instruments) docrag.Tracer {
	return &otelTracer{inner: inst.Tracer}
}

func (t *otelTracer) Start(ctx context.Context, name string, attrs ...docrag.SpanAttr) (context.Context, docrag.Span) {
	ctx, span := t.inner.Start(ctx, name, trace.WithAttributes(toOTELAttrs(attrs)...))
	return ctx, &otelSpan{inner: span}
}

// otelSpan implements docrag.Span using an OTEL trace.Span.
type otelSpan struct {
	inner trace.Span
}

func (s *otelSpan) SetAttr(attrs ...docrag.SpanAttr) {
	s.inner.SetAttributes(toOTELAttrs(attrs)...)
}

func (s *otelSpan) Event(name string, attrs ...docrag.SpanAttr) {
	s.inner.AddEvent(name, trace.WithAttributes(toOTELAttrs(attrs)...))
}

func (s *otelSpan) Error(err error) {
	if err == nil {
		return
	}
	s.inner.RecordError(err)
	s.inner.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) End() { s.inner.End() }

func toOTELAttrs(attrs []docrag.SpanAttr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(attrs))
	for i, a := range attrs {
		out[i] = toOTELAttr(a)
	}
	return out
}

// toOTELAttr converts a docrag.SpanAttr to an OTEL attribute.KeyValue.
// Unknown value types are rendered with %v.
func toOTELAttr(a docrag.SpanAttr) attribute.KeyValue {
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v)
	case int:
		return attribute.Int(a.Key, v)
	case int64:
		return attribute.Int64(a.Key, v)
	case float64:
		return attribute.Float64(a.Key, v)
	case bool:
		return attribute.Bool(a.Key, v)
	case []string:
		return attribute.StringSlice(a.Key, v)
	case time.Duration:
		return attribute.Float64(a.Key, float64(v)/float64(time.Millisecond))
	default:
		return attribute.String(a.Key, fmt.Sprintf("%v", v))
	}
}
