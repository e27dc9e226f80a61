package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nevindra/docrag"
	"github.com/nevindra/docrag/ingest"
)

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var (
		debounce time.Duration
		initial  bool
	)
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-ingest .txt and .pdf files as they change",
		Long: `Watches a directory and ingests .txt and .pdf files when they are created
or written. Chunk identifiers are derived from content, so re-ingesting
unchanged text does not duplicate it. Stops on Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			return withApp(cmd, flags, nil, func(a *app) error {
				out := cmd.OutOrStdout()
				if initial {
					if err := runIngestDir(cmd, a, dir, false); err != nil {
						return err
					}
				}
				w := ingest.NewWatcher(a.pipeline,
					ingest.WithDebounce(debounce),
					ingest.WithWatcherLogger(a.logger))
				fmt.Fprintf(out, "Watching %s for changes...\n", dir)
				return w.Watch(cmd.Context(), dir, func(r docrag.IngestReport) {
					if r.Failed() {
						fmt.Fprintf(out, "%s: failed: %v\n", r.Filename, r.Err)
						return
					}
					fmt.Fprintf(out, "%s: %d chunks\n", r.Filename, r.ChunkCount)
				})
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", ingest.DefaultDebounce, "quiet period before a changed file is ingested")
	cmd.Flags().BoolVar(&initial, "initial", false, "ingest the whole directory before watching")
	return cmd
}
