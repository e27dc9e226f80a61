package docrag

import (
	"context"
	"fmt"
)

// Index persists embedded chunks and answers nearest-neighbour queries.
// Upsert is keyed by Chunk.ID. Search returns results ordered by ascending
// distance; the metric is a property of the implementation.
type Index interface {
	Upsert(ctx context.Context, chunks []Chunk) error
	Search(ctx context.Context, embedding []float32, topK int) ([]RetrievalResult, error)
}

// Counter is an optional Index capability reporting how many chunks are stored.
// Callers discover it via type assertion.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// VectorStore is the text-level store boundary used by ingestion and
// retrieval. The store owns embedding: callers hand it text and metadata
// with pipeline-assigned IDs and query it with plain text.
type VectorStore interface {
	AddDocuments(ctx context.Context, chunks []Chunk) error
	SimilaritySearch(ctx context.Context, query string, k int) ([]RetrievalResult, error)
}

// Collection implements VectorStore on top of an Index and an EmbeddingProvider.
type Collection struct {
	index     Index
	embedding EmbeddingProvider
}

var _ VectorStore = (*Collection)(nil)
var _ Counter = (*Collection)(nil)

// NewCollection composes an Index with the embedding capability that fills it.
func NewCollection(index Index, embedding EmbeddingProvider) *Collection {
	return &Collection{index: index, embedding: embedding}
}

// AddDocuments embeds the chunk texts in one call and upserts them.
func (c *Collection) AddDocuments(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	vecs, err := c.embedding.Embed(ctx, texts)
	if err != nil {
		return &StoreError{Op: "add", Err: fmt.Errorf("embed %d texts: %w", len(texts), err)}
	}
	if len(vecs) != len(chunks) {
		return &StoreError{Op: "add", Err: fmt.Errorf("embedding count mismatch: got %d, want %d", len(vecs), len(chunks))}
	}

	embedded := make([]Chunk, len(chunks))
	for i, ch := range chunks {
		ch.Embedding = vecs[i]
		embedded[i] = ch
	}
	if err := c.index.Upsert(ctx, embedded); err != nil {
		return &StoreError{Op: "add", Err: err}
	}
	return nil
}

// SimilaritySearch embeds the query and returns the k nearest chunks.
func (c *Collection) SimilaritySearch(ctx context.Context, query string, k int) ([]RetrievalResult, error) {
	vecs, err := c.embedding.Embed(ctx, []string{query})
	if err != nil {
		return nil, &StoreError{Op: "search", Err: fmt.Errorf("embed query: %w", err)}
	}
	if len(vecs) == 0 {
		return nil, &StoreError{Op: "search", Err: fmt.Errorf("embed query: no embedding returned")}
	}
	results, err := c.index.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, &StoreError{Op: "search", Err: err}
	}
	return results, nil
}

// Count reports the number of stored chunks if the Index supports it.
func (c *Collection) Count(ctx context.Context) (int, error) {
	counter, ok := c.index.(Counter)
	if !ok {
		return 0, fmt.Errorf("index %T does not support Count", c.index)
	}
	return counter.Count(ctx)
}
