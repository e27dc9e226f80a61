package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/docrag"
	"github.com/nevindra/docrag/ingest"
	"github.com/nevindra/docrag/internal/config"
	"github.com/nevindra/docrag/observer"
	"github.com/nevindra/docrag/provider/hashing"
	"github.com/nevindra/docrag/provider/openaicompat"
	"github.com/nevindra/docrag/store/memory"
	"github.com/nevindra/docrag/store/postgres"
	"github.com/nevindra/docrag/store/qdrant"
	"github.com/nevindra/docrag/store/sqlite"
)

// app is the composition root: every component is built here from config
// and handed its collaborators explicitly.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	store     docrag.VectorStore
	pipeline  *ingest.Pipeline
	directory *ingest.DirectoryIngestor
	retriever *docrag.Retriever
	closers   []func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	// 1. Observability
	var tracer docrag.Tracer
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		i, shutdown, err := observer.Init(ctx)
		if err != nil {
			return nil, fmt.Errorf("init observer: %w", err)
		}
		inst = i
		tracer = observer.TracerFor(inst)
		a.closers = append(a.closers, shutdown)
	}

	// 2. Embedding
	embedding := newEmbedding(cfg.Embedding, logger)
	if inst != nil {
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
	}

	// 3. Index + store
	index, err := a.openIndex(ctx, cfg.Store, embedding.Dimensions())
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	var store docrag.VectorStore = docrag.NewCollection(index, embedding)
	if inst != nil {
		store = observer.WrapStore(store, inst)
	}
	a.store = store

	// 4. Ingestion + retrieval
	splitter := ingest.SplitterByName(cfg.Chunking.Splitter,
		ingest.WithChunkSize(cfg.Chunking.ChunkSize),
		ingest.WithChunkOverlap(cfg.Chunking.ChunkOverlap))
	a.pipeline = ingest.NewPipeline(store,
		ingest.WithLoader(ingest.NewFileLoader(ingest.WithLoaderLogger(logger))),
		ingest.WithSplitter(splitter),
		ingest.WithBatchSize(cfg.Ingestion.BatchSize),
		ingest.WithLogger(logger),
		ingest.WithTracer(tracer))
	a.directory = ingest.NewDirectoryIngestor(a.pipeline,
		ingest.WithFileTimeout(cfg.Ingestion.FileTimeout()),
		ingest.WithDirectoryLogger(logger),
		ingest.WithDirectoryTracer(tracer))
	a.retriever = docrag.NewRetriever(store,
		docrag.WithRetrievalK(cfg.Retrieval.K),
		docrag.WithSuccessThreshold(cfg.Retrieval.DistanceSuccessThreshold),
		docrag.WithLatencyWarning(cfg.Retrieval.LatencyWarning()),
		docrag.WithRetrieverLogger(logger),
		docrag.WithRetrieverTracer(tracer))

	logger.Debug("app ready",
		"store", cfg.Store.Backend,
		"embedding", embedding.Name(),
		"dimensions", embedding.Dimensions())
	return a, nil
}

func newEmbedding(cfg config.EmbeddingConfig, logger *slog.Logger) docrag.EmbeddingProvider {
	if cfg.Provider != "openai" {
		return hashing.New(cfg.Dimensions)
	}
	var p docrag.EmbeddingProvider = openaicompat.NewEmbedding(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimensions,
		openaicompat.WithLogger(logger))
	if cfg.MaxRetries > 0 {
		p = docrag.WithEmbeddingRetry(p, docrag.RetryMaxAttempts(cfg.MaxRetries), docrag.RetryLogger(logger))
	}
	return docrag.WithEmbeddingRateLimit(p, cfg.RPM, 1)
}

func (a *app) openIndex(ctx context.Context, cfg config.StoreConfig, dims int) (docrag.Index, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(), nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { pool.Close(); return nil })
		s := postgres.New(pool,
			postgres.WithTable(cfg.Collection),
			postgres.WithEmbeddingDimension(dims),
			postgres.WithLogger(a.logger))
		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		return s, nil

	case "qdrant":
		s, err := qdrant.New(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, qdrant.WithLogger(a.logger))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		if err := s.Init(ctx, dims); err != nil {
			return nil, fmt.Errorf("init qdrant: %w", err)
		}
		return s, nil

	default:
		s := sqlite.New(cfg.Path, sqlite.WithLogger(a.logger))
		a.closers = append(a.closers, func(context.Context) error { return s.Close() })
		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return s, nil
	}
}

// Close releases stores and flushes telemetry, most recent first.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](context.WithoutCancel(ctx)))
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
