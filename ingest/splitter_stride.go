package ingest

import "strings"

// StrideSplitter cuts text into fixed windows of ChunkSize characters,
// advancing ChunkSize-ChunkOverlap characters (at least 1) per window.
// It ignores structure and is selected with splitter = "stride".
type StrideSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

var _ Splitter = (*StrideSplitter)(nil)

// NewStrideSplitter creates a StrideSplitter. Separators are ignored.
func NewStrideSplitter(opts ...SplitterOption) *StrideSplitter {
	cfg := defaultSplitterConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg = cfg.normalized()
	return &StrideSplitter{ChunkSize: cfg.chunkSize, ChunkOverlap: cfg.chunkOverlap}
}

// Split returns text as a single chunk when it fits, otherwise fixed windows.
// Empty or whitespace-only text yields no chunks.
func (s *StrideSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	cfg := splitterConfig{chunkSize: s.ChunkSize, chunkOverlap: s.ChunkOverlap}.normalized()
	if runeLen(text) <= cfg.chunkSize {
		return []string{text}
	}
	return forceSplit(text, cfg.chunkSize, cfg.chunkOverlap)
}

// SplitterByName returns the splitter registered under name ("recursive" or
// "stride"). Any other name, including "", selects the recursive splitter;
// config.Validate rejects unknown names before they get here.
func SplitterByName(name string, opts ...SplitterOption) Splitter {
	if name == "stride" {
		return NewStrideSplitter(opts...)
	}
	return NewRecursiveSplitter(opts...)
}
