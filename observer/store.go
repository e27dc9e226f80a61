package observer

import (
	"context"
	"fmt"
	"time"

	"github.com/nevindra/docrag"

	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedStore wraps a docrag.VectorStore with OTEL instrumentation.
// Count is forwarded when the inner store implements docrag.Counter.
type ObservedStore struct {
	inner docrag.VectorStore
	inst  *Instruments
}

var (
	_ docrag.VectorStore = (*ObservedStore)(nil)
	_ docrag.Counter     = (*ObservedStore)(nil)
)

// WrapStore returns an instrumented vector store.
func WrapStore(inner docrag.VectorStore, inst *Instruments) *ObservedStore {
	return &ObservedStore{inner: inner, inst: inst}
}

func (o *ObservedStore) AddDocuments(ctx context.Context, chunks []docrag.Chunk) error {
	ctx, span := o.inst.Tracer.Start(ctx, "store.add_documents", trace.WithAttributes(
		AttrChunkCount.Int(len(chunks)),
	))
	defer span.End()
	start := time.Now()

	err := o.inner.AddDocuments(ctx, chunks)

	status := o.finish(ctx, span, "add", start, err)
	if err == nil {
		o.inst.ChunksIngested.Add(ctx, int64(len(chunks)))
	}
	o.emit(ctx, "chunks stored", status,
		otellog.Int("store.chunk_count", len(chunks)))
	return err
}

func (o *ObservedStore) SimilaritySearch(ctx context.Context, query string, k int) ([]docrag.RetrievalResult, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "store.similarity_search", trace.WithAttributes(
		AttrRetrievalK.Int(k),
		AttrQueryLength.Int(len(query)),
	))
	defer span.End()
	start := time.Now()

	results, err := o.inner.SimilaritySearch(ctx, query, k)

	status := o.finish(ctx, span, "search", start, err)
	span.SetAttributes(AttrResultCount.Int(len(results)))
	for _, r := range results {
		o.inst.RetrievalDistance.Record(ctx, r.Distance)
	}
	if avg := docrag.AverageDistance(results); avg != nil {
		span.SetAttributes(AttrAvgDistance.Float64(*avg))
	}
	o.emit(ctx, "similarity search completed", status,
		otellog.Int("retrieval.k", k),
		otellog.Int("retrieval.results", len(results)))
	return results, err
}

// Count forwards to the inner store's Count.
func (o *ObservedStore) Count(ctx context.Context) (int, error) {
	c, ok := o.inner.(docrag.Counter)
	if !ok {
		return 0, fmt.Errorf("store %T does not support Count", o.inner)
	}
	return c.Count(ctx)
}

func (o *ObservedStore) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) string {
	durationMs := float64(time.Since(start).Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.inst.StoreRequests.Add(ctx, 1, metric.WithAttributes(
		AttrStoreOp.String(op),
		AttrStatus.String(status),
	))
	o.inst.StoreDuration.Record(ctx, durationMs, metric.WithAttributes(AttrStoreOp.String(op)))
	return status
}

func (o *ObservedStore) emit(ctx context.Context, msg, status string, attrs ...otellog.KeyValue) {
	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue(msg))
	rec.AddAttributes(attrs...)
	rec.AddAttributes(otellog.String("status", status))
	o.inst.Logger.Emit(ctx, rec)
}
