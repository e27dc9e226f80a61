package main

import (
	"github.com/spf13/cobra"

	"github.com/nevindra/docrag/internal/config"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:   "docrag",
		Short: "Chunk, embed and retrieve documents",
		Long: `docrag ingests .txt and .pdf files into a vector store and retrieves
citation-annotated context for a query.

Settings come from docrag.toml (or --config / $DOCRAG_CONFIG), a .env file
and DOCRAG_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file path (default docrag.toml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newIngestCmd(&flags),
		newIngestDirCmd(&flags),
		newQueryCmd(&flags),
		newWatchCmd(&flags),
		newStatsCmd(&flags),
	)
	return root
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	return cfg, nil
}

// withApp loads config, applies tweak (if non-nil), builds the app for the
// duration of fn and closes it.
func withApp(cmd *cobra.Command, flags *rootFlags, tweak func(*config.Config), fn func(*app) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if tweak != nil {
		tweak(&cfg)
	}
	a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())
	return fn(a)
}
