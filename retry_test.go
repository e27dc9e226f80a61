package docrag

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestWithEmbeddingRetry_SucceedsFirstAttempt(t *testing.T) {
	stub := &stubEmbedding{}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("got %d vectors, want 2", len(vecs))
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithEmbeddingRetry_RetriesOn503(t *testing.T) {
	stub := &stubEmbedding{errs: []error{&ErrHTTP{Status: 503, Body: "unavailable"}}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	if _, err := p.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
}

func TestWithEmbeddingRetry_RetriesOn429(t *testing.T) {
	stub := &stubEmbedding{errs: []error{
		&ErrHTTP{Status: 429},
		&ErrHTTP{Status: 429},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	if _, err := p.Embed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("got %d calls, want 3", stub.calls)
	}
}

func TestWithEmbeddingRetry_DoesNotRetryNonTransient(t *testing.T) {
	stub := &stubEmbedding{errs: []error{&ErrHTTP{Status: 400, Body: "bad request"}}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	_, err := p.Embed(context.Background(), []string{"a"})
	var he *ErrHTTP
	if !errors.As(err, &he) || he.Status != 400 {
		t.Fatalf("expected 400 ErrHTTP, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("got %d calls, want 1", stub.calls)
	}
}

func TestWithEmbeddingRetry_ExhaustsMaxAttempts(t *testing.T) {
	logger, buf := bufferLogger(slog.LevelWarn)
	stub := &stubEmbedding{errs: []error{
		&ErrHTTP{Status: 503},
		&ErrHTTP{Status: 503},
		&ErrHTTP{Status: 503},
		&ErrHTTP{Status: 503},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0), RetryMaxAttempts(2), RetryLogger(logger))

	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if stub.calls != 2 {
		t.Errorf("got %d calls, want 2", stub.calls)
	}
	if !strings.Contains(buf.String(), "embedding retries exhausted") {
		t.Errorf("expected exhaustion log, got %q", buf.String())
	}
}

func TestWithEmbeddingRetry_RespectsRetryAfter(t *testing.T) {
	stub := &stubEmbedding{errs: []error{
		&ErrHTTP{Status: 429, Body: "rate limited", RetryAfter: 100 * time.Millisecond},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0))

	start := time.Now()
	_, err := p.Embed(context.Background(), []string{"a"})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("retry was too fast: %v, expected at least ~100ms from Retry-After", elapsed)
	}
}

func TestWithEmbeddingRetry_TimeoutExceeded(t *testing.T) {
	stub := &stubEmbedding{errs: []error{
		&ErrHTTP{Status: 429, RetryAfter: 100 * time.Millisecond},
		&ErrHTTP{Status: 429, RetryAfter: 100 * time.Millisecond},
	}}
	p := WithEmbeddingRetry(stub, RetryBaseDelay(0), RetryTimeout(50*time.Millisecond))

	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error due to timeout, got nil")
	}
	if stub.calls > 2 {
		t.Errorf("got %d calls, expected at most 2 with 50ms timeout", stub.calls)
	}
}

func TestWithEmbeddingRetry_PassesThroughIdentity(t *testing.T) {
	p := WithEmbeddingRetry(&stubEmbedding{})
	if p.Name() != "stub" || p.Dimensions() != 3 {
		t.Errorf("Name/Dimensions = %q/%d", p.Name(), p.Dimensions())
	}
}

func TestBackoffGrows(t *testing.T) {
	base := 10 * time.Millisecond
	for i := 0; i < 4; i++ {
		d := backoff(base, i)
		floor := base * (1 << i)
		if d < floor || d > floor+floor/2 {
			t.Errorf("backoff(%d) = %v, want in [%v, %v]", i, d, floor, floor+floor/2)
		}
	}
}
