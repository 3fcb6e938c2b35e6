package tools

import (
	"context"
	"database/sql"

	"github.com/roach88/docindex/internal/registry"
	"github.com/roach88/docindex/internal/store"
)

// GCArtifactsInput is the input contract for gc_artifacts (§4.7).
// Empty KeepRefs means "all rows of refs".
type GCArtifactsInput struct {
	KeepRefs []string
	Kinds    []string
	DryRun   bool
}

// GCArtifactsValue is the successful result of GCArtifacts.
type GCArtifactsValue struct {
	ReachableRefs              []string `json:"reachable_refs"`
	ReachableCommits           []string `json:"reachable_commits"`
	ReachableTrees             []string `json:"reachable_trees"`
	DeletedArtifacts           []string `json:"deleted_artifacts"`
	DeletedEmbeddingTreeHashes []string `json:"deleted_embedding_tree_hashes"`
}

func GCArtifacts(ctx context.Context, s *store.Store, in GCArtifactsInput) Result {
	var value GCArtifactsValue
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		plan, err := registry.GC(ctx, tx, in.KeepRefs, in.Kinds, in.DryRun)
		if err != nil {
			return err
		}
		value = GCArtifactsValue{
			ReachableRefs:              orEmpty(plan.ReachableRefs),
			ReachableCommits:           orEmpty(plan.ReachableCommits),
			ReachableTrees:             orEmpty(plan.ReachableTrees),
			DeletedArtifacts:           orEmpty(plan.DeletedArtifacts),
			DeletedEmbeddingTreeHashes: orEmpty(plan.DeletedEmbeddingTreeHashes),
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return ok(value, nil)
}
