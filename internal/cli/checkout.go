package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/tools"
)

func newCheckoutCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "checkout <target>",
		Short:         "Materialize a ref or commit hash into the working tree",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			in := tools.CheckoutIndexInput{Target: args[0]}
			return runTool(app, f, time.Now().UTC().Format(time.RFC3339), "checkout_index", in, func() tools.Result {
				return tools.CheckoutIndex(context.Background(), app.Store, in)
			})
		},
	}
	return cmd
}
