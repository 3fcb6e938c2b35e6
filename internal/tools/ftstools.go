package tools

import (
	"context"
	"database/sql"

	"github.com/roach88/docindex/internal/fts"
	"github.com/roach88/docindex/internal/store"
)

// BuildFTSTreeInput names the ref to build the FTS artifact for.
type BuildFTSTreeInput struct {
	Ref          string
	ForceRebuild bool
}

// BuildFTSTreeValue is the successful result of BuildFTSTree.
type BuildFTSTreeValue struct {
	ArtifactID string `json:"artifact_id"`
	TreeHash   string `json:"tree_hash"`
	CommitHash string `json:"commit_hash"`
	ChunkCount int    `json:"chunk_count"`
	Skipped    bool   `json:"skipped"`
}

func BuildFTSTree(ctx context.Context, s *store.Store, in BuildFTSTreeInput) Result {
	var value BuildFTSTreeValue
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := fts.BuildFTSTree(ctx, tx, in.Ref, in.ForceRebuild)
		if err != nil {
			return err
		}
		value = BuildFTSTreeValue{
			ArtifactID: r.ArtifactID,
			TreeHash:   r.TreeHash,
			CommitHash: r.CommitHash,
			ChunkCount: r.ChunkCount,
			Skipped:    r.Skipped,
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return ok(value, nil)
}

// ValidateFTSInput names the tree to validate.
type ValidateFTSInput struct {
	TreeHash string
}

// ValidateFTSValue is the successful result of ValidateFTS.
type ValidateFTSValue struct {
	GateClosed      bool   `json:"gate_closed"`
	CountsMatch     bool   `json:"counts_match"`
	CanaryFound     bool   `json:"canary_found"`
	NoGhostRows     bool   `json:"no_ghost_rows"`
	NoStrayTriggers bool   `json:"no_stray_triggers"`
	BundleHash      string `json:"bundle_hash"`
}

func ValidateFTS(ctx context.Context, s *store.Store, in ValidateFTSInput) Result {
	var value ValidateFTSValue
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := fts.ValidateFTS(ctx, tx, in.TreeHash)
		if err != nil {
			return err
		}
		value = ValidateFTSValue{
			GateClosed:      r.GateClosed,
			CountsMatch:     r.CountsMatch,
			CanaryFound:     r.CanaryFound,
			NoGhostRows:     r.NoGhostRows,
			NoStrayTriggers: r.NoStrayTriggers,
			BundleHash:      r.BundleHash,
		}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return ok(value, nil)
}
