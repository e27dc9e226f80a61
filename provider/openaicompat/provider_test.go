package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nevindra/docrag"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected path /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("expected model text-embedding-3-small, got %s", req.Model)
		}
		if req.Dimensions != 0 {
			t.Errorf("dimensions should be omitted by default, got %d", req.Dimensions)
		}

		// Reply out of order; the client must restore input order.
		resp := EmbeddingResponse{Object: "list", Model: req.Model}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, EmbeddingData{Index: i, Embedding: []float32{float32(i), 1}})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewEmbedding("test-key", "text-embedding-3-small", srv.URL+"/", 2)
	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed returned error: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i) {
			t.Errorf("vector %d = %v, out of order", i, v)
		}
	}
	if e.Name() != "openai" || e.Dimensions() != 2 {
		t.Errorf("Name/Dimensions = %s/%d", e.Name(), e.Dimensions())
	}
}

func TestEmbedBatches(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var req EmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) > 2 {
			t.Errorf("batch of %d exceeds limit", len(req.Input))
		}
		var resp EmbeddingResponse
		for i, in := range req.Input {
			resp.Data = append(resp.Data, EmbeddingData{Index: i, Embedding: []float32{float32(len(in))}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewEmbedding("", "m", srv.URL, 1, WithBatchSize(2))
	vecs, err := e.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	if err != nil {
		t.Fatal(err)
	}
	if got := requests.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vector %d = %v", i, v)
		}
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewEmbedding("", "m", "http://127.0.0.1:0", 1)
	vecs, err := e.Embed(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("Embed(nil) = %v, %v", vecs, err)
	}
}

func TestEmbedRequestDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req EmbeddingRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Dimensions != 64 {
			t.Errorf("dimensions = %d, want 64", req.Dimensions)
		}
		json.NewEncoder(w).Encode(EmbeddingResponse{Data: []EmbeddingData{{Index: 0, Embedding: make([]float32, 64)}}})
	}))
	defer srv.Close()

	e := NewEmbedding("", "m", srv.URL, 64, WithRequestDimensions(), WithName("local"))
	if _, err := e.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if e.Name() != "local" {
		t.Errorf("Name = %s", e.Name())
	}
}

func TestEmbedHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	e := NewEmbedding("k", "m", srv.URL, 2)
	_, err := e.Embed(context.Background(), []string{"x"})

	var httpErr *docrag.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *docrag.ErrHTTP, got %T: %v", err, err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d", httpErr.Status)
	}
	if httpErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v", httpErr.RetryAfter)
	}
	if httpErr.Body != `{"error":{"message":"rate limited"}}` {
		t.Errorf("Body = %q", httpErr.Body)
	}
}

func TestEmbedRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(EmbeddingResponse{Data: []EmbeddingData{{Index: 0, Embedding: []float32{1}}}})
	}))
	defer srv.Close()

	p := docrag.WithEmbeddingRetry(NewEmbedding("", "m", srv.URL, 1), docrag.RetryBaseDelay(time.Millisecond))
	vecs, err := p.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(vecs) != 1 || calls.Load() != 2 {
		t.Errorf("vecs = %v, calls = %d", vecs, calls.Load())
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(EmbeddingResponse{Data: []EmbeddingData{{Index: 0, Embedding: []float32{1}}}})
	}))
	defer srv.Close()

	e := NewEmbedding("", "m", srv.URL, 1)
	if _, err := e.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for missing embedding")
	}
}

func TestOrderVectors(t *testing.T) {
	tests := []struct {
		name    string
		data    []EmbeddingData
		n       int
		wantErr bool
	}{
		{name: "in order", data: []EmbeddingData{{Index: 0}, {Index: 1}}, n: 2},
		{name: "reversed", data: []EmbeddingData{{Index: 1}, {Index: 0}}, n: 2},
		{name: "duplicate", data: []EmbeddingData{{Index: 0}, {Index: 0}}, n: 2, wantErr: true},
		{name: "out of range", data: []EmbeddingData{{Index: 2}, {Index: 0}}, n: 2, wantErr: true},
		{name: "short", data: []EmbeddingData{{Index: 0}}, n: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := range tt.data {
				tt.data[i].Embedding = []float32{float32(tt.data[i].Index)}
			}
			got, err := orderVectors(tt.data, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			for i, v := range got {
				if v[0] != float32(i) {
					t.Errorf("slot %d holds %v", i, v)
				}
			}
		})
	}
}

func TestEmbedContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEmbedding("", "m", srv.URL, 1)
	if _, err := e.Embed(ctx, []string{"x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
