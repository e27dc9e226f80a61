package docrag

import "context"

// Tracer starts spans around ingestion and retrieval steps. Components keep
// a nil Tracer when tracing is off; observer.NewTracer backs it with
// OpenTelemetry.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...SpanAttr) (context.Context, Span)
}

// Span is one traced step. End must be called once.
type Span interface {
	SetAttr(attrs ...SpanAttr)
	// Event marks a point on the span, e.g. a slow retrieval.
	Event(name string, attrs ...SpanAttr)
	// Error records err and marks the span failed.
	Error(err error)
	End()
}

// SpanAttr is a span or event attribute. Value is a string, int, bool or
// float64 when built with the helpers below.
type SpanAttr struct {
	Key   string
	Value any
}

func StringAttr(k, v string) SpanAttr {
	return SpanAttr{Key: k, Value: v}
}

func IntAttr(k string, v int) SpanAttr {
	return SpanAttr{Key: k, Value: v}
}

func BoolAttr(k string, v bool) SpanAttr {
	return SpanAttr{Key: k, Value: v}
}

func Float64Attr(k string, v float64) SpanAttr {
	return SpanAttr{Key: k, Value: v}
}

// StartSpan starts a span on t. With a nil t it returns ctx unchanged and a
// span that discards everything, so callers never branch on tracing.
func StartSpan(ctx context.Context, t Tracer, name string, attrs ...SpanAttr) (context.Context, Span) {
	if t == nil {
		return ctx, discardSpan{}
	}
	return t.Start(ctx, name, attrs...)
}

type discardSpan struct{}

func (discardSpan) SetAttr(...SpanAttr)       {}
func (discardSpan) Event(string, ...SpanAttr) {}
func (discardSpan) Error(error)               {}
func (discardSpan) End()                      {}
