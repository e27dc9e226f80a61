package docrag

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"
)

// stubStore is a VectorStore returning canned results.
type stubStore struct {
	results []RetrievalResult
	err     error
	delay   time.Duration
	queries []string
	ks      []int
}

func (s *stubStore) AddDocuments(context.Context, []Chunk) error { return nil }

func (s *stubStore) SimilaritySearch(_ context.Context, query string, k int) ([]RetrievalResult, error) {
	s.queries = append(s.queries, query)
	s.ks = append(s.ks, k)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]RetrievalResult, len(s.results))
	copy(out, s.results)
	return out, nil
}

// stubEmbedding returns vecs (or one fixed vector per text) and records calls.
type stubEmbedding struct {
	mu    sync.Mutex
	calls int
	texts [][]string
	vecs  [][]float32
	errs  []error
}

func (e *stubEmbedding) Name() string    { return "stub" }
func (e *stubEmbedding) Dimensions() int { return 3 }

func (e *stubEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.calls
	e.calls++
	e.texts = append(e.texts, texts)
	if i < len(e.errs) && e.errs[i] != nil {
		return nil, e.errs[i]
	}
	if e.vecs != nil {
		return e.vecs, nil
	}
	out := make([][]float32, len(texts))
	for j := range texts {
		out[j] = []float32{1, 0, 0}
	}
	return out, nil
}

// recordingIndex stores upserted chunks in memory.
type recordingIndex struct {
	upserts [][]Chunk
	results []RetrievalResult
	err     error
	lastVec []float32
	lastK   int
}

func (x *recordingIndex) Upsert(_ context.Context, chunks []Chunk) error {
	if x.err != nil {
		return x.err
	}
	x.upserts = append(x.upserts, chunks)
	return nil
}

func (x *recordingIndex) Search(_ context.Context, embedding []float32, topK int) ([]RetrievalResult, error) {
	x.lastVec = embedding
	x.lastK = topK
	if x.err != nil {
		return nil, x.err
	}
	return x.results, nil
}

// bufferLogger returns a text logger writing to the returned buffer.
func bufferLogger(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})), &buf
}
