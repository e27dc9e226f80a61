package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/nevindra/docrag"
)

// Loader reads a file and returns its normalized full text.
type Loader interface {
	Load(ctx context.Context, path string) (string, error)
}

// LoaderOption configures a FileLoader.
type LoaderOption func(*FileLoader)

// WithExtractor registers an Extractor for a given ContentType.
func WithExtractor(ct ContentType, e Extractor) LoaderOption {
	return func(l *FileLoader) { l.extractors[ct] = e }
}

// WithLoaderLogger sets the structured logger.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *FileLoader) { l.logger = logger }
}

// FileLoader loads .txt and .pdf files from the local filesystem.
//
// Errors:
//   - docrag.ErrNotFound when path does not exist or is a directory
//   - docrag.ErrUnsupportedFormat for any other extension
//   - *docrag.ParseError when the file cannot be read or decoded
type FileLoader struct {
	extractors map[ContentType]Extractor
	logger     *slog.Logger
}

var _ Loader = (*FileLoader)(nil)

// NewFileLoader creates a FileLoader with plain text and PDF extractors.
func NewFileLoader(opts ...LoaderOption) *FileLoader {
	l := &FileLoader{
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypePDF:       NewPDFExtractor(),
		},
		logger: nopLogger,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load checks existence before the extension, so a missing .docx reports
// ErrNotFound rather than ErrUnsupportedFormat.
func (l *FileLoader) Load(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("load %s: %w", path, docrag.ErrNotFound)
		}
		return "", &docrag.ParseError{Path: path, Err: err}
	}
	if info.IsDir() {
		return "", fmt.Errorf("load %s: is a directory: %w", path, docrag.ErrNotFound)
	}

	ct, ok := ContentTypeFromPath(path)
	if !ok {
		return "", fmt.Errorf("load %s: %w", path, docrag.ErrUnsupportedFormat)
	}
	extractor, ok := l.extractors[ct]
	if !ok {
		return "", fmt.Errorf("load %s: no extractor for %s: %w", path, ct, docrag.ErrUnsupportedFormat)
	}

	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &docrag.ParseError{Path: path, Err: err}
	}
	raw, err := extractor.Extract(data)
	if err != nil {
		return "", &docrag.ParseError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text := Normalize(raw)
	l.logger.Debug("loaded document",
		"path", path,
		"type", string(ct),
		"bytes", len(data),
		"chars", runeLen(text),
		"duration", time.Since(start))
	return text, nil
}
