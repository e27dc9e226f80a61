// Package memory implements docrag.Index in process memory with brute-force
// cosine distance. Contents are lost when the process exits.
package memory

import (
	"context"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/nevindra/docrag"
)

// Store is a concurrency-safe in-memory docrag.Index.
type Store struct {
	mu     sync.RWMutex
	chunks map[string]docrag.Chunk
}

var _ docrag.Index = (*Store)(nil)
var _ docrag.Counter = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{chunks: make(map[string]docrag.Chunk)}
}

// Upsert stores copies of chunks keyed by ID.
func (s *Store) Upsert(_ context.Context, chunks []docrag.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		c.Metadata = maps.Clone(c.Metadata)
		s.chunks[c.ID] = c
	}
	return nil
}

// Search returns the topK chunks with the smallest cosine distance. Ties
// are broken by ID so results are deterministic. Result metadata is a copy.
func (s *Store) Search(ctx context.Context, embedding []float32, topK int) ([]docrag.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	results := make([]docrag.RetrievalResult, 0, len(s.chunks))
	for _, c := range s.chunks {
		results = append(results, docrag.RetrievalResult{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Metadata,
			Distance: 1 - cosine(embedding, c.Embedding),
		})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	for i := range results {
		results[i].Metadata = maps.Clone(results[i].Metadata)
	}
	return results, nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
