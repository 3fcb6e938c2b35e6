package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/tools"
)

func newGCCommand(opts *RootOptions) *cobra.Command {
	var keepRefs, kinds []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:           "gc",
		Short:         "Delete artifacts unreachable from the kept refs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			in := tools.GCArtifactsInput{KeepRefs: keepRefs, Kinds: kinds, DryRun: dryRun}
			return runTool(app, f, time.Now().UTC().Format(time.RFC3339), "gc_artifacts", in, func() tools.Result {
				return tools.GCArtifacts(context.Background(), app.Store, in)
			})
		},
	}

	cmd.Flags().StringSliceVar(&keepRefs, "keep-ref", nil, "ref to treat as a GC root (repeatable; default: all refs)")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "restrict index_artifacts deletion to these kinds (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the plan without deleting anything")
	return cmd
}
