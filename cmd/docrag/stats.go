package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nevindra/docrag"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many chunks the store holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, nil, func(a *app) error {
				out := cmd.OutOrStdout()
				counter, ok := a.store.(docrag.Counter)
				if !ok {
					return fmt.Errorf("store backend %q cannot count chunks", a.cfg.Store.Backend)
				}
				n, err := counter.Count(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Backend:    %s\n", a.cfg.Store.Backend)
				fmt.Fprintf(out, "Embedding:  %s (%d dimensions)\n", a.cfg.Embedding.Provider, a.cfg.Embedding.Dimensions)
				fmt.Fprintf(out, "Chunks:     %d\n", n)
				return nil
			})
		},
	}
}
