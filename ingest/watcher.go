package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nevindra/docrag"
)

// DefaultDebounce is how long a file must be quiet before it is re-ingested.
const DefaultDebounce = 500 * time.Millisecond

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after the last write event before a
// file is ingested.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the structured logger.
func WithWatcherLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// Watcher re-ingests .txt and .pdf files in a directory whenever they are
// created or written. Ingestion runs on the watch goroutine, one file at a
// time. Content-addressed chunk IDs make repeated ingestion of the same
// content a no-op for the store.
type Watcher struct {
	ingester FileIngester
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a Watcher feeding changed files to ingester.
func NewWatcher(ingester FileIngester, opts ...WatcherOption) *Watcher {
	w := &Watcher{ingester: ingester, debounce: DefaultDebounce, logger: nopLogger}
	for _, o := range opts {
		o(w)
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	return w
}

// Watch blocks until ctx is done, calling onReport (if non-nil) after each
// ingestion attempt. It returns nil when ctx is cancelled.
func (w *Watcher) Watch(ctx context.Context, dir string, onReport func(docrag.IngestReport)) error {
	if _, err := ListFiles(dir); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching directory", "dir", dir)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, ok := watchTarget(ev); ok {
				pending[path] = time.Now()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.debounce {
					continue
				}
				delete(pending, path)
				report := w.ingest(ctx, path)
				if onReport != nil {
					onReport(report)
				}
			}
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) (report docrag.IngestReport) {
	report = docrag.IngestReport{Filename: filepath.Base(path), Path: path}
	defer func() {
		if r := recover(); r != nil {
			report.ChunkCount = 0
			report.Err = &docrag.ParseError{Path: path, Err: fmt.Errorf("panic: %v", r)}
		}
		if report.Err != nil {
			w.logger.Error("failed to ingest changed file", "file", report.Filename, "error", report.Err)
		}
	}()
	n, err := w.ingester.Ingest(ctx, path)
	report.ChunkCount, report.Err = n, err
	if err != nil {
		report.ChunkCount = 0
	}
	return report
}

// watchTarget returns the path to ingest for ev, if any: a create or write
// of a supported regular file.
func watchTarget(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if !IsSupported(ev.Name) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}
