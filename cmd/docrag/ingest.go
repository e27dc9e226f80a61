package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nevindra/docrag"
	"github.com/nevindra/docrag/ingest"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest one .txt or .pdf file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, nil, func(a *app) error {
				n, err := a.pipeline.Ingest(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d chunks from %s\n", n, args[0])
				return nil
			})
		},
	}
}

func newIngestDirCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ingest-dir <dir>",
		Short: "Ingest every .txt and .pdf file in a directory",
		Long: `Ingests the .txt and .pdf files directly inside a directory, one at a
time, printing a line per file and a summary. A file that fails to parse
is reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, nil, func(a *app) error {
				return runIngestDir(cmd, a, args[0], asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON report per line")
	return cmd
}

func runIngestDir(cmd *cobra.Command, a *app, dir string, asJSON bool) error {
	reports, err := a.directory.IngestDirectory(cmd.Context(), dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !asJSON {
		fmt.Fprintf(out, "Ingesting documents from %s...\n", dir)
	}

	start := time.Now()
	var sum ingest.Summary
	for r := range reports {
		sum.Add(r)
		if asJSON {
			if err := writeReportJSON(out, r); err != nil {
				return err
			}
			continue
		}
		printReport(out, sum.Files, r)
	}
	if asJSON {
		return nil
	}
	printSummary(out, sum, time.Since(start))
	return nil
}

func printReport(w io.Writer, i int, r docrag.IngestReport) {
	switch {
	case r.Failed():
		fmt.Fprintf(w, "[%d] %s: failed: %v\n", i, r.Filename, r.Err)
	case r.ChunkCount == 0:
		fmt.Fprintf(w, "[%d] %s: empty\n", i, r.Filename)
	default:
		fmt.Fprintf(w, "[%d] %s: %d chunks\n", i, r.Filename, r.ChunkCount)
	}
}

func printSummary(w io.Writer, sum ingest.Summary, took time.Duration) {
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintln(w, "Ingestion complete.")
	fmt.Fprintf(w, "Files:        %d (%d failed)\n", sum.Files, sum.Failed)
	fmt.Fprintf(w, "Total time:   %.2fs\n", took.Seconds())
	fmt.Fprintf(w, "Total chunks: %d\n", sum.Chunks)
	if secs := took.Seconds(); secs > 0 {
		fmt.Fprintf(w, "Avg speed:    %.1f chunks/sec\n", float64(sum.Chunks)/secs)
	} else {
		fmt.Fprintln(w, "Avg speed:    n/a")
	}
}

type reportJSON struct {
	Filename   string `json:"filename"`
	Path       string `json:"path"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
}

func writeReportJSON(w io.Writer, r docrag.IngestReport) error {
	rec := reportJSON{Filename: r.Filename, Path: r.Path, ChunkCount: r.ChunkCount}
	if r.Err != nil {
		rec.Error = r.Err.Error()
	}
	return json.NewEncoder(w).Encode(rec)
}
