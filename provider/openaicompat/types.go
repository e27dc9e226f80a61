// Package openaicompat provides an embedding client for any API that
// implements the OpenAI /embeddings endpoint (OpenAI, Azure OpenAI, Ollama,
// vLLM, LM Studio, Together, Mistral and others).
package openaicompat

// --- Request types ---

// EmbeddingRequest is the OpenAI embeddings request body.
type EmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"` // "float"
}

// --- Response types ---

// EmbeddingResponse is the OpenAI embeddings response.
type EmbeddingResponse struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  *Usage          `json:"usage,omitempty"`
}

// EmbeddingData is one vector in an EmbeddingResponse. Index is the position
// of the corresponding input; servers may return data out of order.
type EmbeddingData struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}
