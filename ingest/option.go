package ingest

import (
	"log/slog"
	"time"

	"github.com/nevindra/docrag"
)

var nopLogger = docrag.NopLogger()

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLoader sets the document loader (default: NewFileLoader()).
func WithLoader(l Loader) Option {
	return func(p *Pipeline) { p.loader = l }
}

// WithSplitter sets the splitter (default: NewRecursiveSplitter()).
func WithSplitter(s Splitter) Option {
	return func(p *Pipeline) { p.splitter = s }
}

// WithBatchSize sets the number of chunks per AddDocuments call (default 5000).
func WithBatchSize(n int) Option {
	return func(p *Pipeline) { p.batchSize = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithTracer sets the tracer for ingestion spans.
func WithTracer(t docrag.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// DirectoryOption configures a DirectoryIngestor.
type DirectoryOption func(*DirectoryIngestor)

// WithFileTimeout bounds the time spent on each file. Zero means no limit.
// A file that overruns is reported as a *docrag.ParseError wrapping
// context.DeadlineExceeded and the run moves on without waiting for it.
func WithFileTimeout(timeout time.Duration) DirectoryOption {
	return func(d *DirectoryIngestor) { d.fileTimeout = timeout }
}

// WithDirectoryLogger sets the structured logger.
func WithDirectoryLogger(l *slog.Logger) DirectoryOption {
	return func(d *DirectoryIngestor) { d.logger = l }
}

// WithDirectoryTracer sets the tracer for directory ingestion spans.
func WithDirectoryTracer(t docrag.Tracer) DirectoryOption {
	return func(d *DirectoryIngestor) { d.tracer = t }
}
