package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/tools"
)

func newRetrieveCommand(opts *RootOptions) *cobra.Command {
	var k int
	var indexVersion string
	var withEmbeddings bool
	var ref, providerID string
	var dims, bm25K, vectorK int
	var alpha float64

	cmd := &cobra.Command{
		Use:           "retrieve <query>",
		Short:         "Rank chunks by BM25 relevance, or hybrid BM25+cosine with --with-embeddings",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, f, err := openApp(opts, cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			query := args[0]
			ts := time.Now().UTC().Format(time.RFC3339)

			if !withEmbeddings {
				in := tools.RetrieveInput{Query: query, K: k, IndexVersion: indexVersion}
				return runTool(app, f, ts, "retrieve", in, func() tools.Result {
					return tools.Retrieve(context.Background(), app.Store, in)
				})
			}

			in := tools.RetrieveWithEmbeddingsInput{
				Query: query, K: k, Ref: ref, ProviderID: providerID,
				Dims: dims, BM25K: bm25K, VectorK: vectorK, Alpha: alpha,
			}
			return runTool(app, f, ts, "retrieve_with_embeddings", in, func() tools.Result {
				return tools.RetrieveWithEmbeddings(context.Background(), app.Store, app.Providers, in)
			})
		},
	}

	cmd.Flags().IntVar(&k, "k", 10, "number of candidates to return (clamped to 1-25)")
	cmd.Flags().StringVar(&indexVersion, "index-version", "", "expected working-tree version, for drift warnings")
	cmd.Flags().BoolVar(&withEmbeddings, "with-embeddings", false, "use hybrid BM25+cosine ranking")
	cmd.Flags().StringVar(&ref, "ref", "HEAD", "ref to rank against (hybrid mode)")
	cmd.Flags().StringVar(&providerID, "provider", "local", "embedding provider id (hybrid mode)")
	cmd.Flags().IntVar(&dims, "dims", 0, "embedding dimensionality hint (hybrid mode)")
	cmd.Flags().IntVar(&bm25K, "bm25-k", 0, "BM25 candidate pool size (hybrid mode)")
	cmd.Flags().IntVar(&vectorK, "vector-k", 0, "vector candidate pool size (hybrid mode)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0.5, "BM25/cosine blend weight, 1=BM25-only, 0=cosine-only")
	return cmd
}
