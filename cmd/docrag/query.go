package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nevindra/docrag/internal/config"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var (
		k      int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve citation-annotated context for a query",
		Long: `Retrieves the chunks nearest to the query and prints them as a numbered
citation block, followed by the average distance and whether retrieval
counts as successful (average distance below the configured threshold).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			tweak := func(cfg *config.Config) {
				if k > 0 {
					cfg.Retrieval.K = k
				}
			}
			return withApp(cmd, flags, tweak, func(a *app) error {
				out := cmd.OutOrStdout()
				rc, err := a.retriever.RetrieveContext(cmd.Context(), query)
				if err != nil {
					return err
				}
				if asJSON {
					data, err := json.MarshalIndent(rc, "", "  ")
					if err != nil {
						return fmt.Errorf("marshal results: %w", err)
					}
					fmt.Fprintln(out, string(data))
					return nil
				}

				if len(rc.Results) == 0 {
					fmt.Fprintln(out, "No results found.")
					return nil
				}
				fmt.Fprintln(out, rc.FormattedContext)
				fmt.Fprintln(out)
				fmt.Fprintf(out, "Avg distance: %.4f\n", *rc.AvgDistance)
				fmt.Fprintf(out, "Success:      %t\n", rc.IsSuccess)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output the retrieval context as JSON")
	return cmd
}
