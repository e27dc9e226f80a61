package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Splitter splits text into chunks suitable for embedding.
type Splitter interface {
	Split(text string) []string
}

// Splitter defaults.
const (
	DefaultChunkSize    = 1500
	DefaultChunkOverlap = 300
)

// DefaultSeparators is the separator cascade used by RecursiveSplitter:
// paragraphs, lines, words, then individual characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// --- SplitterOption for configuring splitters ---

// SplitterOption configures a splitter implementation.
type SplitterOption func(*splitterConfig)

type splitterConfig struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

func defaultSplitterConfig() splitterConfig {
	return splitterConfig{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		separators:   DefaultSeparators,
	}
}

// WithChunkSize sets the maximum chunk length in characters (code points).
func WithChunkSize(n int) SplitterOption {
	return func(c *splitterConfig) { c.chunkSize = n }
}

// WithChunkOverlap sets the maximum number of characters shared between
// consecutive chunks.
func WithChunkOverlap(n int) SplitterOption {
	return func(c *splitterConfig) { c.chunkOverlap = n }
}

// WithSeparators replaces the separator cascade, coarsest first. Include ""
// as the last entry to allow character-level splitting.
func WithSeparators(seps ...string) SplitterOption {
	return func(c *splitterConfig) { c.separators = seps }
}

func (c splitterConfig) normalized() splitterConfig {
	if c.chunkSize < 1 {
		c.chunkSize = 1
	}
	if c.chunkOverlap < 0 {
		c.chunkOverlap = 0
	}
	return c
}

// --- RecursiveSplitter ---

// RecursiveSplitter splits text along the coarsest separator that occurs in
// it, recursing into finer separators for pieces that are still too long,
// and greedily merges the pieces back into chunks of at most ChunkSize
// characters with up to ChunkOverlap characters carried between chunks.
//
// An overlap greater than or equal to the chunk size is accepted: the merge
// still advances by at least one unit per chunk and the fallback stride is
// clamped to 1.
type RecursiveSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

var _ Splitter = (*RecursiveSplitter)(nil)

// NewRecursiveSplitter creates a RecursiveSplitter with the given options.
// Defaults: 1500 characters, 300 overlap, DefaultSeparators.
func NewRecursiveSplitter(opts ...SplitterOption) *RecursiveSplitter {
	cfg := defaultSplitterConfig()
	for _, o := range opts {
		o(&cfg)
	}
	cfg = cfg.normalized()
	return &RecursiveSplitter{
		ChunkSize:    cfg.chunkSize,
		ChunkOverlap: cfg.chunkOverlap,
		Separators:   cfg.separators,
	}
}

// Split returns the chunks of text in document order. Text no longer than
// ChunkSize is returned as a single chunk, except that empty or
// whitespace-only text yields no chunks rather than one blank chunk, so
// nothing without content reaches the embedder.
func (s *RecursiveSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	cfg := splitterConfig{
		chunkSize:    s.ChunkSize,
		chunkOverlap: s.ChunkOverlap,
		separators:   s.Separators,
	}.normalized()
	if runeLen(text) <= cfg.chunkSize {
		return []string{text}
	}
	return splitRecursive(text, cfg.separators, cfg.chunkSize, cfg.chunkOverlap)
}

func splitRecursive(text string, separators []string, size, overlap int) []string {
	sep, rest, ok := pickSeparator(text, separators)
	if !ok {
		return forceSplit(text, size, overlap)
	}

	var chunks, pending []string
	for _, frag := range splitOn(text, sep) {
		if runeLen(frag) < size {
			pending = append(pending, frag)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, mergeSplits(pending, sep, size, overlap)...)
			pending = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, forceSplit(frag, size, overlap)...)
		} else {
			chunks = append(chunks, splitRecursive(frag, rest, size, overlap)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, mergeSplits(pending, sep, size, overlap)...)
	}
	return chunks
}

// pickSeparator returns the first separator present in text together with
// the finer separators after it. "" always matches.
func pickSeparator(text string, separators []string) (string, []string, bool) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:], true
		}
	}
	return "", nil, false
}

// splitOn splits text by sep, dropping empty fragments. An empty sep splits
// into individual characters.
func splitOn(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeSplits greedily joins units with sep into chunks of at most size
// characters. After each emitted chunk, units are dropped from the front
// until the retained length is within overlap and the next unit fits. When
// no whole unit can be retained, the next chunk starts with the tail of the
// emitted one instead, so consecutive chunks always share some text.
func mergeSplits(units []string, sep string, size, overlap int) []string {
	sepLen := runeLen(sep)
	var chunks []string
	var current []string
	total := 0

	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	for _, u := range units {
		n := runeLen(u)
		if total+n+joinLen() > size && len(current) > 0 {
			doc := strings.TrimSpace(strings.Join(current, sep))
			if doc != "" {
				chunks = append(chunks, doc)
			}
			for total > overlap || (total+n+joinLen() > size && total > 0) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
			if len(current) == 0 && doc != "" {
				if seed := tailWithin(doc, min(overlap, size-n-sepLen)); seed != "" {
					current = append(current, seed)
					total = runeLen(seed)
				}
			}
		}
		current = append(current, u)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		chunks = append(chunks, doc)
	}
	return chunks
}

// tailWithin returns at most limit trailing characters of s, starting at a
// word boundary when the window contains one.
func tailWithin(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if limit >= len(runes) {
		return s
	}
	tail := runes[len(runes)-limit:]
	if !unicode.IsSpace(runes[len(runes)-limit-1]) {
		for i, r := range tail {
			if unicode.IsSpace(r) {
				tail = tail[i+1:]
				break
			}
		}
	}
	return strings.TrimSpace(string(tail))
}

// forceSplit cuts text into fixed windows of size characters advancing by
// max(1, size-overlap). The last window ends at the end of text.
func forceSplit(text string, size, overlap int) []string {
	runes := []rune(text)
	stride := max(1, size-overlap)
	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := min(start+size, len(runes))
		if c := strings.TrimSpace(string(runes[start:end])); c != "" {
			chunks = append(chunks, c)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
