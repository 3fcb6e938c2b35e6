package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/tools"
)

func newDiffCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "diff <from> <to>",
		Short:         "Diff two refs or commit hashes at document granularity",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			in := tools.DiffIndexInput{From: args[0], To: args[1]}
			return runTool(app, f, time.Now().UTC().Format(time.RFC3339), "diff_index", in, func() tools.Result {
				return tools.DiffIndex(context.Background(), app.Store, in)
			})
		},
	}
	return cmd
}
