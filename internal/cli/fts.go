package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/tools"
)

func newBuildFTSCommand(opts *RootOptions) *cobra.Command {
	var ref string
	var force bool

	cmd := &cobra.Command{
		Use:           "build-fts",
		Short:         "Build or refresh the per-tree FTS artifact",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			in := tools.BuildFTSTreeInput{Ref: ref, ForceRebuild: force}
			return runTool(app, f, time.Now().UTC().Format(time.RFC3339), "build_fts_tree", in, func() tools.Result {
				return tools.BuildFTSTree(context.Background(), app.Store, in)
			})
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "HEAD", "ref to build the FTS tree for")
	cmd.Flags().BoolVar(&force, "force", false, "clear leftover fts_chunks rows for the tree before building (a drifted artifact still fails)")
	return cmd
}

func newValidateFTSCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate-fts <tree-hash>",
		Short:         "Validate an FTS artifact's completeness and gate state",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			in := tools.ValidateFTSInput{TreeHash: args[0]}
			return runTool(app, f, time.Now().UTC().Format(time.RFC3339), "validate_fts", in, func() tools.Result {
				return tools.ValidateFTS(context.Background(), app.Store, in)
			})
		},
	}
	return cmd
}
