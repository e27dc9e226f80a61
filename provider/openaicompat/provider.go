package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nevindra/docrag"
)

// DefaultBatchSize is the maximum number of inputs per /embeddings request.
const DefaultBatchSize = 256

// Embedding implements docrag.EmbeddingProvider for any OpenAI-compatible
// embeddings API.
type Embedding struct {
	apiKey    string
	model     string
	baseURL   string
	dims      int
	client    *http.Client
	name      string
	batchSize int
	sendDims  bool
	logger    *slog.Logger
}

var _ docrag.EmbeddingProvider = (*Embedding)(nil)

// NewEmbedding creates an OpenAI-compatible embedding provider.
//
// baseURL is the API base (e.g. "https://api.openai.com/v1",
// "http://localhost:11434/v1"). The /embeddings path is appended
// automatically. dims is the vector size the model produces.
func NewEmbedding(apiKey, model, baseURL string, dims int, opts ...ProviderOption) *Embedding {
	e := &Embedding{
		apiKey:    apiKey,
		model:     model,
		baseURL:   strings.TrimRight(baseURL, "/"),
		dims:      dims,
		client:    &http.Client{},
		name:      "openai",
		batchSize: DefaultBatchSize,
		logger:    docrag.NopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the provider name (default "openai", configurable via WithName).
func (e *Embedding) Name() string { return e.name }

// Dimensions returns the configured embedding dimensionality.
func (e *Embedding) Dimensions() int { return e.dims }

// Embed returns one vector per text, in input order.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		vecs, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedding) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body := EmbeddingRequest{Model: e.model, Input: texts, EncodingFormat: "float"}
	if e.sendDims {
		body.Dimensions = e.dims
	}

	start := time.Now()
	resp, err := e.sendHTTP(ctx, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, e.httpErr(resp)
	}

	var parsed EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", e.name, err)
	}
	vecs, err := orderVectors(parsed.Data, len(texts))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	e.logger.Debug("embed batch ok",
		"provider", e.name,
		"model", e.model,
		"inputs", len(texts),
		"duration", time.Since(start))
	return vecs, nil
}

// orderVectors places each vector at its reported input index and checks that
// every input received exactly one vector.
func orderVectors(data []EmbeddingData, n int) ([][]float32, error) {
	if len(data) != n {
		return nil, fmt.Errorf("got %d embeddings for %d inputs", len(data), n)
	}
	out := make([][]float32, n)
	for _, d := range data {
		if d.Index < 0 || d.Index >= n {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if out[d.Index] != nil {
			return nil, fmt.Errorf("duplicate embedding index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// sendHTTP marshals the request body and sends it to the embeddings endpoint.
func (e *Embedding) sendHTTP(ctx context.Context, body EmbeddingRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", e.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", e.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: embed request: %w", e.name, err)
	}
	return resp, nil
}

// httpErr reads the response body and returns an ErrHTTP for retry middleware.
// Parses the Retry-After header when present (429/503 responses).
func (e *Embedding) httpErr(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &docrag.ErrHTTP{
		Status:     resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
		RetryAfter: docrag.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}
