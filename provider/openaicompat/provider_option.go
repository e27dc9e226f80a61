package openaicompat

import (
	"log/slog"
	"net/http"
)

// ProviderOption configures an Embedding instance.
type ProviderOption func(*Embedding)

// WithName sets the provider name returned by Name() (default "openai").
// Use this to distinguish providers in logs and observability.
func WithName(name string) ProviderOption {
	return func(e *Embedding) { e.name = name }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(e *Embedding) { e.client = c }
}

// WithBatchSize caps the number of inputs sent per request (default 256).
// Larger Embed calls are split into several requests.
func WithBatchSize(n int) ProviderOption {
	return func(e *Embedding) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithRequestDimensions asks the server to truncate vectors to the configured
// dimensions. Only models that support the "dimensions" parameter accept it.
func WithRequestDimensions() ProviderOption {
	return func(e *Embedding) { e.sendDims = true }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(e *Embedding) { e.logger = l }
}
