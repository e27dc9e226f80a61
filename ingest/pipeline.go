package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nevindra/docrag"
)

// DefaultBatchSize is the number of chunks written per AddDocuments call.
const DefaultBatchSize = 5000

// Pipeline ingests a single file: load → split → assign content-addressed
// IDs → write to the vector store in batches. Embedding is the store's job.
//
// Re-ingesting an unchanged file rewrites the same IDs, so the store ends
// up with the same set of chunks.
type Pipeline struct {
	store     docrag.VectorStore
	loader    Loader
	splitter  Splitter
	batchSize int
	logger    *slog.Logger
	tracer    docrag.Tracer
}

// NewPipeline creates a Pipeline writing to store.
func NewPipeline(store docrag.VectorStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		loader:    NewFileLoader(),
		splitter:  NewRecursiveSplitter(),
		batchSize: DefaultBatchSize,
		logger:    nopLogger,
	}
	for _, o := range opts {
		o(p)
	}
	if p.batchSize <= 0 {
		p.batchSize = DefaultBatchSize
	}
	return p
}

// Ingest loads the file at path and writes its chunks to the store, keyed
// by ChunkID(path, text) with metadata {"source": path}. It returns the
// number of distinct chunks written; a file that yields no chunks returns 0
// without touching the store.
func (p *Pipeline) Ingest(ctx context.Context, path string) (int, error) {
	ctx, span := docrag.StartSpan(ctx, p.tracer, "ingest.file", docrag.StringAttr("ingest.path", path))
	defer span.End()

	start := time.Now()
	text, err := p.loader.Load(ctx, path)
	if err != nil {
		span.Error(err)
		return 0, fmt.Errorf("ingest %s: %w", path, err)
	}
	n, err := p.IngestText(ctx, path, text)
	if err != nil {
		span.Error(err)
		return 0, err
	}
	span.SetAttr(docrag.IntAttr("ingest.chunks", n))
	p.logger.Info("ingested file", "path", path, "chunks", n, "duration", time.Since(start))
	return n, nil
}

// IngestText splits already-loaded text and writes the chunks under source.
func (p *Pipeline) IngestText(ctx context.Context, source, text string) (int, error) {
	chunks := p.Chunks(source, text)
	if len(chunks) == 0 {
		p.logger.Debug("no chunks produced", "source", source)
		return 0, nil
	}

	for start := 0; start < len(chunks); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return 0, fmt.Errorf("ingest %s: %w", source, err)
		}
		end := min(start+p.batchSize, len(chunks))
		if err := p.store.AddDocuments(ctx, chunks[start:end]); err != nil {
			return 0, fmt.Errorf("ingest %s: batch %d-%d: %w", source, start, end, err)
		}
		p.logger.Debug("wrote batch", "source", source, "from", start, "to", end)
	}
	return len(chunks), nil
}

// Chunks splits text and builds the chunks that would be written for source,
// dropping repeated texts within the document (first occurrence wins).
func (p *Pipeline) Chunks(source, text string) []docrag.Chunk {
	texts := p.splitter.Split(text)
	if len(texts) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(texts))
	chunks := make([]docrag.Chunk, 0, len(texts))
	for _, t := range texts {
		id := docrag.ChunkID(source, t)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		chunks = append(chunks, docrag.Chunk{
			ID:       id,
			Content:  t,
			Metadata: map[string]string{docrag.MetaSource: source},
		})
	}
	return chunks
}
