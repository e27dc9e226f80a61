package docrag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// Retriever defaults.
const (
	DefaultRetrievalK       = 10
	DefaultSuccessThreshold = 1.0
	DefaultLatencyWarning   = 300 * time.Millisecond
)

const (
	unknownSource        = "Unknown"
	slowRetrievalMessage = "retrieval exceeded latency budget"
	spanRetrieve         = "retrieval.retrieve"
	eventSlowRetrieval   = "retrieval.slow"
)

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithRetrievalK sets the number of nearest chunks fetched per query (default 10).
func WithRetrievalK(k int) RetrieverOption {
	return func(r *Retriever) { r.k = k }
}

// WithSuccessThreshold sets the average distance below which retrieval is
// classified as successful (default 1.0).
func WithSuccessThreshold(d float64) RetrieverOption {
	return func(r *Retriever) { r.threshold = d }
}

// WithLatencyWarning sets the latency budget above which a slow-retrieval
// warning is logged (default 300ms). Zero disables the warning.
func WithLatencyWarning(d time.Duration) RetrieverOption {
	return func(r *Retriever) { r.latencyBudget = d }
}

// WithRetrieverLogger sets the structured logger for retrieval events.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// WithRetrieverTracer sets the tracer for retrieval spans.
func WithRetrieverTracer(t Tracer) RetrieverOption {
	return func(r *Retriever) { r.tracer = t }
}

// Retriever queries a VectorStore and scores the quality of what came back.
// It holds no mutable state and is safe for concurrent use.
type Retriever struct {
	store         VectorStore
	k             int
	threshold     float64
	latencyBudget time.Duration
	logger        *slog.Logger
	tracer        Tracer
}

// NewRetriever creates a Retriever over store.
func NewRetriever(store VectorStore, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		store:         store,
		k:             DefaultRetrievalK,
		threshold:     DefaultSuccessThreshold,
		latencyBudget: DefaultLatencyWarning,
		logger:        nopLogger,
	}
	for _, o := range opts {
		o(r)
	}
	if r.k <= 0 {
		r.k = DefaultRetrievalK
	}
	return r
}

// Retrieve returns the k chunks nearest to query, closest first.
// k <= 0 uses the configured default. No results is not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]RetrievalResult, error) {
	if k <= 0 {
		k = r.k
	}
	ctx, span := StartSpan(ctx, r.tracer, spanRetrieve, IntAttr("retrieval.k", k))
	defer span.End()

	start := time.Now()
	results, err := r.store.SimilaritySearch(ctx, query, k)
	elapsed := time.Since(start)
	if err != nil {
		span.Error(err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	span.SetAttr(IntAttr("retrieval.results", len(results)))
	if r.latencyBudget > 0 && elapsed > r.latencyBudget {
		r.logger.Warn(slowRetrievalMessage,
			"took", elapsed,
			"budget", r.latencyBudget,
			"k", k,
			"results", len(results))
		span.Event(eventSlowRetrieval, Float64Attr("retrieval.duration_ms", float64(elapsed.Milliseconds())))
	}
	r.logger.Debug("retrieve ok", "k", k, "results", len(results), "duration", elapsed)
	return results, nil
}

// RetrieveContext retrieves the default number of chunks for query and
// derives the citation block and the quality signal.
func (r *Retriever) RetrieveContext(ctx context.Context, query string) (RetrievalContext, error) {
	results, err := r.Retrieve(ctx, query, r.k)
	if err != nil {
		return RetrievalContext{}, err
	}
	avg := AverageDistance(results)
	return RetrievalContext{
		FormattedContext: FormatContext(results),
		AvgDistance:      avg,
		IsSuccess:        avg != nil && *avg < r.threshold,
		Results:          results,
	}, nil
}

// AverageDistance returns the arithmetic mean of the result distances, or
// nil when results is empty.
func AverageDistance(results []RetrievalResult) *float64 {
	if len(results) == 0 {
		return nil
	}
	var sum float64
	for _, res := range results {
		sum += res.Distance
	}
	avg := sum / float64(len(results))
	return &avg
}

// FormatContext renders results as a numbered citation block:
//
//	[1] (Source: a.pdf)
//	<text>
//
//	[2] (Source: b.txt)
//	<text>
//
// Numbering starts at 1 and follows result order.
func FormatContext(results []RetrievalResult) string {
	parts := make([]string, len(results))
	for i, res := range results {
		source := res.Source()
		if source == "" {
			source = unknownSource
		}
		parts[i] = fmt.Sprintf("[%d] (Source: %s)\n%s", i+1, source, res.Content)
	}
	return strings.Join(parts, "\n\n")
}
