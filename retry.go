package docrag

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

// RetryOption configures WithEmbeddingRetry.
type RetryOption func(*retryingEmbedding)

// RetryMaxAttempts sets how many times a batch is sent before giving up
// (default 3, counting the first request).
func RetryMaxAttempts(n int) RetryOption {
	return func(r *retryingEmbedding) { r.attempts = n }
}

// RetryBaseDelay sets the wait before the second attempt (default 1s).
// It doubles on every further attempt.
func RetryBaseDelay(d time.Duration) RetryOption {
	return func(r *retryingEmbedding) { r.baseDelay = d }
}

// RetryTimeout caps the total time one Embed call may spend across
// attempts. Zero means no cap beyond ctx.
func RetryTimeout(d time.Duration) RetryOption {
	return func(r *retryingEmbedding) { r.budget = d }
}

// RetryLogger sets the logger. Each retry is logged at WARN and giving up at
// ERROR.
func RetryLogger(l *slog.Logger) RetryOption {
	return func(r *retryingEmbedding) { r.logger = l }
}

// retryingEmbedding re-sends embedding batches rejected with 429 or 503.
type retryingEmbedding struct {
	inner     EmbeddingProvider
	attempts  int
	baseDelay time.Duration
	budget    time.Duration
	logger    *slog.Logger
}

var _ EmbeddingProvider = (*retryingEmbedding)(nil)

// WithEmbeddingRetry wraps p so that batches the server throttles (429) or
// is too busy for (503) are sent again after a jittered exponential backoff.
// A Retry-After hint from the server lengthens the wait, never shortens it.
// Any other error is returned at once.
func WithEmbeddingRetry(p EmbeddingProvider, opts ...RetryOption) EmbeddingProvider {
	r := &retryingEmbedding{inner: p, attempts: 3, baseDelay: time.Second, logger: nopLogger}
	for _, o := range opts {
		o(r)
	}
	if r.attempts < 1 {
		r.attempts = 1
	}
	if r.logger == nil {
		r.logger = nopLogger
	}
	return r
}

func (r *retryingEmbedding) Name() string    { return r.inner.Name() }
func (r *retryingEmbedding) Dimensions() int { return r.inner.Dimensions() }

func (r *retryingEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if r.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.budget)
		defer cancel()
	}

	var err error
	for attempt := 0; attempt < r.attempts; attempt++ {
		var vecs [][]float32
		vecs, err = r.inner.Embed(ctx, texts)
		he, retryable := throttled(err)
		if !retryable {
			return vecs, err
		}
		r.logger.Warn("embedding request throttled, retrying",
			"provider", r.inner.Name(),
			"status", he.Status,
			"texts", len(texts),
			"attempt", attempt+1,
			"max_attempts", r.attempts)
		if attempt == r.attempts-1 {
			break
		}
		if err := sleepCtx(ctx, max(backoff(r.baseDelay, attempt), he.RetryAfter)); err != nil {
			return nil, err
		}
	}
	r.logger.Error("embedding retries exhausted",
		"provider", r.inner.Name(),
		"attempts", r.attempts,
		"error", err)
	return nil, err
}

// throttled reports whether err is an HTTP 429 or 503 from the provider.
func throttled(err error) (*ErrHTTP, bool) {
	var he *ErrHTTP
	if !errors.As(err, &he) {
		return nil, false
	}
	return he, he.Status == http.StatusTooManyRequests || he.Status == http.StatusServiceUnavailable
}

// backoff is base*2^attempt plus up to half of that again as jitter.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base << attempt
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
