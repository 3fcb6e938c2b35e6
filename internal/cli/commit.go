package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/tools"
)

func newCommitCommand(opts *RootOptions) *cobra.Command {
	var message, refName string
	var parents []string

	cmd := &cobra.Command{
		Use:           "commit",
		Short:         "Freeze the current working tree into a commit",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			in := tools.CommitIndexInput{Message: message, Parents: parents, RefName: refName}
			return runTool(app, f, time.Now().UTC().Format(time.RFC3339), "commit_index", in, func() tools.Result {
				return tools.CommitIndex(context.Background(), app.Store, in)
			})
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "commit message")
	cmd.Flags().StringVar(&refName, "ref", "HEAD", "ref to advance to the new commit")
	cmd.Flags().StringSliceVar(&parents, "parent", nil, "parent commit hash (repeatable)")

	return cmd
}
