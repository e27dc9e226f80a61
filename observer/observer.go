// Package observer provides OTEL-based observability for docrag ingestion
// and retrieval.
//
// It wraps EmbeddingProvider and VectorStore with instrumented versions that
// emit traces, metrics, and logs via OpenTelemetry, and provides a
// docrag.Tracer for the pipeline, directory ingestor and retriever. Users
// export to any OTEL-compatible backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/docrag/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	EmbedRequests  metric.Int64Counter
	StoreRequests  metric.Int64Counter
	ChunksIngested metric.Int64Counter

	// Histograms
	EmbedDuration     metric.Float64Histogram
	StoreDuration     metric.Float64Histogram
	RetrievalDistance metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("docrag")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := newInstruments(otel.Tracer(scopeName), otel.Meter(scopeName), lp.Logger(scopeName))
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

// NewInstruments builds Instruments on the current global OTEL providers
// without installing exporters. With no providers configured every
// instrument is a no-op.
func NewInstruments() (*Instruments, error) {
	return newInstruments(
		otel.Tracer(scopeName),
		otel.Meter(scopeName),
		global.GetLoggerProvider().Logger(scopeName),
	)
}

func newInstruments(tracer trace.Tracer, meter metric.Meter, logger otellog.Logger) (*Instruments, error) {
	embedRequests, err := meter.Int64Counter("embedding.requests",
		metric.WithDescription("Embedding request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	storeRequests, err := meter.Int64Counter("store.requests",
		metric.WithDescription("Vector store operation count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	chunksIngested, err := meter.Int64Counter("ingest.chunks",
		metric.WithDescription("Chunks written to the vector store"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	embedDuration, err := meter.Float64Histogram("embedding.duration",
		metric.WithDescription("Embedding call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	storeDuration, err := meter.Float64Histogram("store.duration",
		metric.WithDescription("Vector store operation duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	retrievalDistance, err := meter.Float64Histogram("retrieval.distance",
		metric.WithDescription("Distance of each retrieved chunk to its query"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:            tracer,
		Meter:             meter,
		Logger:            logger,
		EmbedRequests:     embedRequests,
		StoreRequests:     storeRequests,
		ChunksIngested:    chunksIngested,
		EmbedDuration:     embedDuration,
		StoreDuration:     storeDuration,
		RetrievalDistance: retrievalDistance,
	}, nil
}
