package cli

import (
	"github.com/spf13/cobra"
)

// ValidFormats are the allowed --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the docindex CLI: a thin Cobra front end over
// internal/tools, wiring in internal/config and internal/audit.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "docindex",
		Short: "docindex - a content-addressed document index",
		Long:  "A deterministic, content-addressed document index with FTS and hybrid retrieval.",
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite database (default: DOCINDEX_DB_PATH, else docindex.db)")
	cmd.PersistentFlags().StringVar(&opts.CUEPath, "config", "", "path to an optional CUE config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newCommitCommand(opts))
	cmd.AddCommand(newCheckoutCommand(opts))
	cmd.AddCommand(newDiffCommand(opts))
	cmd.AddCommand(newBuildFTSCommand(opts))
	cmd.AddCommand(newValidateFTSCommand(opts))
	cmd.AddCommand(newBuildEmbeddingsCommand(opts))
	cmd.AddCommand(newRetrieveCommand(opts))
	cmd.AddCommand(newGCCommand(opts))
	cmd.AddCommand(newTaskCommand(opts))

	return cmd
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
