package tools

import (
	"context"
	"database/sql"

	"github.com/roach88/docindex/internal/embeddings"
	"github.com/roach88/docindex/internal/store"
)

const (
	defaultBatchSize = 128
	maxBatchSize     = 2048
)

// BuildEmbeddingsInput is the input contract for build_embeddings
// (§4.5). BatchSize of 0 defaults to 128 and is capped at 2048.
type BuildEmbeddingsInput struct {
	Ref        string
	ProviderID string
	Dims       int
	BatchSize  int
}

// BuildEmbeddingsValue is the successful result of BuildEmbeddings.
type BuildEmbeddingsValue struct {
	ArtifactID string `json:"artifact_id"`
	TreeHash   string `json:"tree_hash"`
	CommitHash string `json:"commit_hash"`
	ChunkCount int    `json:"chunk_count"`
	Dims       int    `json:"dims"`
}

func BuildEmbeddings(ctx context.Context, s *store.Store, providers Providers, in BuildEmbeddingsInput) Result {
	provider, found := providers.get(in.ProviderID)
	if !found {
		return fail(errUnknownProvider(in.ProviderID))
	}

	batchSize := in.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchSize = clamp(batchSize, 1, maxBatchSize)

	var value BuildEmbeddingsValue
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := embeddings.BuildEmbeddings(ctx, tx, in.Ref, provider, in.Dims, batchSize)
		if err != nil {
			return err
		}
		value = BuildEmbeddingsValue{
			ArtifactID: r.ArtifactID,
			TreeHash:   r.TreeHash,
			CommitHash: r.CommitHash,
			ChunkCount: r.ChunkCount,
			Dims:       r.Dims,
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return ok(value, nil)
}
