package ingest

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nevindra/docrag"
)

func TestIngestDirectoryMissing(t *testing.T) {
	d := NewDirectoryIngestor(NewPipeline(newFakeStore()))
	seq, err := d.IngestDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, docrag.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if seq != nil {
		t.Error("expected nil sequence on error")
	}
}

func TestIngestDirectoryNotADirectory(t *testing.T) {
	path := writeFile(t, t.TempDir(), "file.txt", "x")
	_, err := NewDirectoryIngestor(NewPipeline(newFakeStore())).IngestDirectory(context.Background(), path)
	if !errors.Is(err, docrag.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIngestDirectoryContinuesAfterFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha document")
	writeFile(t, dir, "b.pdf", "garbage that is not a pdf")
	writeFile(t, dir, "c.txt", "gamma document")
	writeFile(t, dir, "d.md", "# ignored")
	if err := os.Mkdir(filepath.Join(dir, "e.txt"), 0o755); err != nil {
		t.Fatal(err)
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	store := newFakeStore()
	d := NewDirectoryIngestor(NewPipeline(store), WithDirectoryLogger(logger))

	seq, err := d.IngestDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	var reports []docrag.IngestReport
	for r := range seq {
		reports = append(reports, r)
	}

	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}
	wantNames := []string{"a.txt", "b.pdf", "c.txt"}
	for i, r := range reports {
		if r.Filename != wantNames[i] {
			t.Errorf("report %d = %s, want %s", i, r.Filename, wantNames[i])
		}
	}
	if reports[0].ChunkCount != 1 || reports[2].ChunkCount != 1 {
		t.Errorf("text files should produce one chunk each: %+v", reports)
	}
	if !reports[1].Failed() || reports[1].ChunkCount != 0 {
		t.Errorf("b.pdf should fail with 0 chunks: %+v", reports[1])
	}
	var pe *docrag.ParseError
	if !errors.As(reports[1].Err, &pe) {
		t.Errorf("expected ParseError, got %v", reports[1].Err)
	}
	if store.size() != 2 {
		t.Errorf("store holds %d chunks, want 2", store.size())
	}
	if !strings.Contains(logs.String(), "failed to ingest file") || !strings.Contains(logs.String(), "b.pdf") {
		t.Errorf("failure not logged: %s", logs.String())
	}
}

// scriptedIngester runs fn for each path and counts calls.
type scriptedIngester struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, path string) (int, error)
}

func (s *scriptedIngester) Ingest(ctx context.Context, path string) (int, error) {
	s.mu.Lock()
	s.calls = append(s.calls, filepath.Base(path))
	s.mu.Unlock()
	return s.fn(ctx, path)
}

func TestIngestDirectoryIsLazy(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.txt", "2.txt", "3.txt"} {
		writeFile(t, dir, name, "x")
	}
	ing := &scriptedIngester{fn: func(context.Context, string) (int, error) { return 1, nil }}
	seq, err := NewDirectoryIngestor(ing).IngestDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(ing.calls) != 0 {
		t.Fatalf("ingestion started before iteration: %v", ing.calls)
	}
	for range seq {
		break
	}
	if len(ing.calls) != 1 {
		t.Errorf("calls = %v, want exactly one", ing.calls)
	}
}

func TestIngestDirectoryRecoversPanics(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "x")
	writeFile(t, dir, "b.txt", "x")
	ing := &scriptedIngester{fn: func(_ context.Context, path string) (int, error) {
		if strings.HasSuffix(path, ".pdf") {
			panic("index out of range")
		}
		return 3, nil
	}}
	seq, err := NewDirectoryIngestor(ing).IngestDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	var reports []docrag.IngestReport
	for r := range seq {
		reports = append(reports, r)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports", len(reports))
	}
	var pe *docrag.ParseError
	if !errors.As(reports[0].Err, &pe) || reports[0].ChunkCount != 0 {
		t.Errorf("panic should become a ParseError report: %+v", reports[0])
	}
	if reports[1].Err != nil || reports[1].ChunkCount != 3 {
		t.Errorf("second file should succeed: %+v", reports[1])
	}
}

func TestIngestDirectoryFileTimeout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "slow.txt", "x")
	writeFile(t, dir, "zfast.txt", "x")
	ing := &scriptedIngester{fn: func(ctx context.Context, path string) (int, error) {
		if strings.HasSuffix(path, "slow.txt") {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return 1, nil
	}}
	seq, err := NewDirectoryIngestor(ing, WithFileTimeout(20*time.Millisecond)).IngestDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	var reports []docrag.IngestReport
	for r := range seq {
		reports = append(reports, r)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports", len(reports))
	}
	var pe *docrag.ParseError
	if !errors.As(reports[0].Err, &pe) || !errors.Is(reports[0].Err, context.DeadlineExceeded) {
		t.Errorf("timeout should be a ParseError wrapping DeadlineExceeded: %v", reports[0].Err)
	}
	if reports[1].ChunkCount != 1 {
		t.Errorf("file after a timeout should be ingested: %+v", reports[1])
	}
}

// stuckExtractor ignores ctx and blocks until released.
type stuckExtractor struct{ release chan struct{} }

func (e stuckExtractor) Extract([]byte) (string, error) {
	<-e.release
	return "late text", nil
}

func TestIngestDirectoryFileTimeoutAbandonsStuckParser(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", "x")
	writeFile(t, dir, "b.txt", "bravo document")

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	loader := NewFileLoader(WithExtractor(TypePDF, stuckExtractor{release: release}))
	store := newFakeStore()
	d := NewDirectoryIngestor(NewPipeline(store, WithLoader(loader)), WithFileTimeout(50*time.Millisecond))

	seq, err := d.IngestDirectory(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	var reports []docrag.IngestReport
	for r := range seq {
		reports = append(reports, r)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("directory run took %s, the stuck file was not abandoned", elapsed)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports", len(reports))
	}
	var pe *docrag.ParseError
	if !errors.As(reports[0].Err, &pe) || !errors.Is(reports[0].Err, context.DeadlineExceeded) {
		t.Errorf("stuck file should report a ParseError wrapping DeadlineExceeded: %v", reports[0].Err)
	}
	if reports[1].Err != nil || reports[1].ChunkCount != 1 {
		t.Errorf("file after the stuck one should be ingested: %+v", reports[1])
	}
}

func TestIngestDirectoryStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "1.txt", "x")
	writeFile(t, dir, "2.txt", "x")
	ctx, cancel := context.WithCancel(context.Background())
	ing := &scriptedIngester{fn: func(context.Context, string) (int, error) {
		cancel()
		return 1, nil
	}}
	seq, err := NewDirectoryIngestor(ing).IngestDirectory(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for range seq {
		n++
	}
	if n != 1 || len(ing.calls) != 1 {
		t.Errorf("reports = %d, calls = %v; want iteration to end after cancel", n, ing.calls)
	}
}

func TestListFilesSorted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.pdf", "a.TXT", "b.txt", "notes.md"} {
		writeFile(t, dir, name, "x")
	}
	files, err := ListFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if strings.Join(names, ",") != "a.TXT,b.txt,c.pdf" {
		t.Errorf("files = %v", names)
	}
}

func TestSummary(t *testing.T) {
	var s Summary
	s.Add(docrag.IngestReport{ChunkCount: 4})
	s.Add(docrag.IngestReport{Err: errors.New("bad")})
	s.Add(docrag.IngestReport{ChunkCount: 2})
	if s.Files != 3 || s.Failed != 1 || s.Chunks != 6 || s.Succeeded() != 2 {
		t.Errorf("summary = %+v", s)
	}
}
