package docrag

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// rateLimitEmbeddingProvider wraps an EmbeddingProvider with proactive rate
// limiting. Embed blocks until the limiter grants a token or ctx is done.
type rateLimitEmbeddingProvider struct {
	inner   EmbeddingProvider
	limiter *rate.Limiter
}

// WithEmbeddingRateLimit wraps p so that at most rpm Embed calls start per
// minute, with bursts of up to burst calls. rpm <= 0 returns p unchanged.
//
//	emb = docrag.WithEmbeddingRateLimit(emb, 3000, 10)
func WithEmbeddingRateLimit(p EmbeddingProvider, rpm, burst int) EmbeddingProvider {
	if rpm <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	every := time.Minute / time.Duration(rpm)
	return &rateLimitEmbeddingProvider{
		inner:   p,
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

func (r *rateLimitEmbeddingProvider) Name() string    { return r.inner.Name() }
func (r *rateLimitEmbeddingProvider) Dimensions() int { return r.inner.Dimensions() }

func (r *rateLimitEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

var _ EmbeddingProvider = (*rateLimitEmbeddingProvider)(nil)
