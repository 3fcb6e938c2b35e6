package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/tools"
)

func newBuildEmbeddingsCommand(opts *RootOptions) *cobra.Command {
	var ref, providerID string
	var dims, batchSize int

	cmd := &cobra.Command{
		Use:           "build-embeddings",
		Short:         "Embed every chunk of ref's tree and register the artifact",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			in := tools.BuildEmbeddingsInput{Ref: ref, ProviderID: providerID, Dims: dims, BatchSize: batchSize}
			return runTool(app, f, time.Now().UTC().Format(time.RFC3339), "build_embeddings", in, func() tools.Result {
				return tools.BuildEmbeddings(context.Background(), app.Store, app.Providers, in)
			})
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "HEAD", "ref to build embeddings for")
	cmd.Flags().StringVar(&providerID, "provider", "local", "embedding provider id")
	cmd.Flags().IntVar(&dims, "dims", 0, "embedding dimensionality hint")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "provider batch size (default 128, max 2048)")
	return cmd
}
