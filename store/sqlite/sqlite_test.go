package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/nevindra/docrag"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func chunk(id, source, content string, emb ...float32) docrag.Chunk {
	return docrag.Chunk{
		ID:        id,
		Content:   content,
		Metadata:  map[string]string{docrag.MetaSource: source},
		Embedding: emb,
	}
}

func TestInitIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "init.db"))
	defer s.Close()
	ctx := context.Background()
	if err := s.Init(ctx); err != nil {
		t.Fatalf("first Init: %v", err)
	}
	if err := s.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
}

func TestUpsertAndSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []docrag.Chunk{
		chunk("a", "x.txt", "about cats", 1, 0, 0),
		chunk("b", "y.txt", "about dogs", 0, 1, 0),
		chunk("c", "x.txt", "cats and dogs", 0.7, 0.7, 0),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("order = %s, %s; want a, c", got[0].ID, got[1].ID)
	}
	if math.Abs(got[0].Distance) > 1e-6 {
		t.Errorf("identical vector distance = %v, want 0", got[0].Distance)
	}
	if got[0].Source() != "x.txt" || got[0].Content != "about cats" {
		t.Errorf("result = %+v", got[0])
	}
	if got[1].Distance <= got[0].Distance {
		t.Errorf("distances not ascending: %v, %v", got[0].Distance, got[1].Distance)
	}
}

func TestUpsertReplaces(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Upsert(ctx, []docrag.Chunk{chunk("a", "x.txt", "v", 1, 0)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Upsert(ctx, []docrag.Chunk{chunk("a", "x.txt", "updated", 0, 1)}); err != nil {
		t.Fatal(err)
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
	got, _ := s.Search(ctx, []float32{0, 1}, 1)
	if len(got) != 1 || got[0].Content != "updated" {
		t.Errorf("expected updated row, got %+v", got)
	}
}

func TestUpsertRejectsMissingEmbedding(t *testing.T) {
	s := testStore(t)
	if err := s.Upsert(context.Background(), []docrag.Chunk{chunk("a", "x.txt", "no vector")}); err == nil {
		t.Error("expected error for chunk without embedding")
	}
}

func TestSearchEmpty(t *testing.T) {
	s := testStore(t)
	got, err := s.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		a, b []float32
		want float64
	}{
		{[]float32{1, 0}, []float32{1, 0}, 1},
		{[]float32{1, 0}, []float32{0, 1}, 0},
		{[]float32{1, 0}, []float32{-1, 0}, -1},
		{[]float32{1, 0}, []float32{1, 0, 0}, 0},
		{[]float32{0, 0}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("cosineSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestWithCollection(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	coll := docrag.NewCollection(s, fixedEmbedding{})

	if err := coll.AddDocuments(ctx, []docrag.Chunk{
		{ID: docrag.ChunkID("a.txt", "alpha"), Content: "alpha", Metadata: map[string]string{docrag.MetaSource: "a.txt"}},
	}); err != nil {
		t.Fatal(err)
	}
	res, err := coll.SimilaritySearch(ctx, "alpha", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Source() != "a.txt" {
		t.Errorf("results = %+v", res)
	}
	n, err := coll.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count = %d, %v", n, err)
	}
}

type fixedEmbedding struct{}

func (fixedEmbedding) Name() string    { return "fixed" }
func (fixedEmbedding) Dimensions() int { return 2 }

func (fixedEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 1}
	}
	return out, nil
}
