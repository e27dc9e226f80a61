package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/nevindra/docrag"
)

// FileIngester ingests one file and reports how many chunks it wrote.
// *Pipeline implements it.
type FileIngester interface {
	Ingest(ctx context.Context, path string) (int, error)
}

// DirectoryIngestor ingests every .txt and .pdf file directly inside a
// directory, one at a time. A failing file never stops the run: the error is
// logged and reported, and the next file is processed.
type DirectoryIngestor struct {
	ingester    FileIngester
	fileTimeout time.Duration
	logger      *slog.Logger
	tracer      docrag.Tracer
}

// NewDirectoryIngestor creates a DirectoryIngestor feeding files to ingester.
func NewDirectoryIngestor(ingester FileIngester, opts ...DirectoryOption) *DirectoryIngestor {
	d := &DirectoryIngestor{ingester: ingester, logger: nopLogger}
	for _, o := range opts {
		o(d)
	}
	return d
}

// IngestDirectory lists the supported files in dir, sorted by name, and
// returns a sequence yielding one report per file as it is ingested.
// Nothing is ingested until the sequence is ranged over; breaking out of
// the loop stops before the next file.
//
// An error is returned only when dir does not exist or is not a directory.
// Cancelling ctx ends the sequence after the file in progress.
func (d *DirectoryIngestor) IngestDirectory(ctx context.Context, dir string) (iter.Seq[docrag.IngestReport], error) {
	files, err := ListFiles(dir)
	if err != nil {
		return nil, err
	}
	d.logger.Info("ingesting directory", "dir", dir, "files", len(files))

	return func(yield func(docrag.IngestReport) bool) {
		for _, path := range files {
			if ctx.Err() != nil {
				return
			}
			report := d.ingestFile(ctx, path)
			if !yield(report) {
				return
			}
		}
	}, nil
}

// ingestFile runs one file under the per-file deadline and converts every
// failure, including parser panics, into a report.
//
// With a file timeout set, the ingester runs on its own goroutine so that a
// parser that ignores ctx cannot stall the batch. When the deadline passes
// first, that goroutine is abandoned: it keeps running until the parser
// returns and any chunks it still writes are content-addressed, so a later
// run converges on the same store state.
func (d *DirectoryIngestor) ingestFile(ctx context.Context, path string) docrag.IngestReport {
	report := docrag.IngestReport{Filename: filepath.Base(path), Path: path}

	ctx, span := docrag.StartSpan(ctx, d.tracer, "ingest.directory.file",
		docrag.StringAttr("ingest.path", path))
	defer span.End()

	start := time.Now()
	var n int
	var err error
	if d.fileTimeout > 0 {
		n, err = d.ingestWithTimeout(ctx, path)
	} else {
		n, err = d.safeIngest(ctx, path)
	}
	if err != nil {
		report.Err = err
		span.Error(err)
		d.logger.Error("failed to ingest file",
			"file", report.Filename,
			"error", err,
			"duration", time.Since(start))
		return report
	}
	report.ChunkCount = n
	span.SetAttr(docrag.IntAttr("ingest.chunks", n))
	return report
}

type ingestResult struct {
	n   int
	err error
}

func (d *DirectoryIngestor) ingestWithTimeout(ctx context.Context, path string) (int, error) {
	fileCtx, cancel := context.WithTimeout(ctx, d.fileTimeout)
	defer cancel()

	done := make(chan ingestResult, 1)
	go func() {
		n, err := d.safeIngest(fileCtx, path)
		done <- ingestResult{n: n, err: err}
	}()

	var res ingestResult
	select {
	case res = <-done:
	case <-fileCtx.Done():
		select {
		case res = <-done:
		default:
			res.err = fileCtx.Err()
		}
	}
	if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
		return 0, &docrag.ParseError{Path: path, Err: fmt.Errorf("exceeded file timeout %s: %w", d.fileTimeout, res.err)}
	}
	if res.err != nil {
		return 0, res.err
	}
	return res.n, nil
}

// safeIngest calls the ingester, turning a panic into a ParseError.
func (d *DirectoryIngestor) safeIngest(ctx context.Context, path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, &docrag.ParseError{Path: path, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	n, err = d.ingester.Ingest(ctx, path)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListFiles returns the regular .txt and .pdf files directly inside dir,
// sorted by name. Subdirectories are not descended into.
func ListFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("directory %s: %w", dir, docrag.ErrNotFound)
		}
		return nil, fmt.Errorf("directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("directory %s: not a directory: %w", dir, docrag.ErrNotFound)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !IsSupported(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// Summary accumulates directory ingestion reports.
type Summary struct {
	Files  int
	Failed int
	Chunks int
}

// Add records one report.
func (s *Summary) Add(r docrag.IngestReport) {
	s.Files++
	if r.Failed() {
		s.Failed++
	}
	s.Chunks += r.ChunkCount
}

// Succeeded returns the number of files ingested without error.
func (s Summary) Succeeded() int { return s.Files - s.Failed }
