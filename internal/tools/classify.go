package tools

import (
	"errors"

	"github.com/roach88/docindex/internal/dag"
	"github.com/roach88/docindex/internal/embeddings"
	"github.com/roach88/docindex/internal/fts"
	"github.com/roach88/docindex/internal/retriever"
	"github.com/roach88/docindex/internal/scheduler"
)

// classify maps a package sentinel error onto the stable Code
// taxonomy and wraps it as a *CodeError. Unrecognized errors fall
// through to ERR_TOOL_FAILURE, the catch-all for external I/O and
// anything this function doesn't yet know about.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return err
	}

	switch {
	case errors.Is(err, dag.ErrRefNotFound), errors.Is(err, fts.ErrRefNotFound), errors.Is(err, embeddings.ErrRefNotFound):
		return wrapCode(CodeRefNotFound, err)
	case errors.Is(err, dag.ErrRefMismatch):
		return wrapCode(CodeRefMismatch, err)
	case errors.Is(err, dag.ErrCommitNotFound):
		return wrapCode(CodeCommitNotFound, err)
	case errors.Is(err, dag.ErrTreeNotFound):
		return wrapCode(CodeTreeNotFound, err)
	case errors.Is(err, dag.ErrTreeHashMissing):
		return wrapCode(CodeTreeHashMissing, err)
	case errors.Is(err, dag.ErrTreeDocsMissing):
		return wrapCode(CodeTreeDocsMissing, err)
	case errors.Is(err, dag.ErrTreeChunksMissing):
		return wrapCode(CodeTreeChunksMissing, err)
	case errors.Is(err, embeddings.ErrTreePayloadMissing):
		return wrapCode(CodeTreePayloadMissing, err)
	case errors.Is(err, dag.ErrBlobMissing):
		return wrapCode(CodeBlobMissing, err)
	case errors.Is(err, dag.ErrDataCorruption), errors.Is(err, fts.ErrDataCorruption):
		return wrapCode(CodeDataCorruption, err)
	case errors.Is(err, fts.ErrNotFrozen):
		return wrapCode(CodeNotFrozen, err)
	case errors.Is(err, fts.ErrArtifactDrift):
		return wrapCode(CodeArtifactDrift, err)
	case errors.Is(err, fts.ErrDirtyState):
		return wrapCode(CodeDirtyState, err)
	case errors.Is(err, fts.ErrGateMissing):
		return wrapCode(CodeGateMissing, err)
	case errors.Is(err, fts.ErrRowidCollision):
		return wrapCode(CodeRowidCollision, err)
	case errors.Is(err, fts.ErrFTSIncomplete):
		return wrapCode(CodeFTSIncomplete, err)
	case errors.Is(err, fts.ErrFTSExtraRows):
		return wrapCode(CodeFTSExtraRows, err)
	case errors.Is(err, fts.ErrBuildFailed):
		return wrapCode(CodeBuildFailed, err)
	case errors.Is(err, embeddings.ErrWorkingTreeDirty):
		return wrapCode(CodeWorkingTreeDirty, err)
	case errors.Is(err, embeddings.ErrEmbeddingDims):
		return wrapCode(CodeEmbeddingDims, err)
	case errors.Is(err, embeddings.ErrEmbeddingsNotFound), errors.Is(err, retriever.ErrEmbeddingsNotFound):
		return wrapCode(CodeEmbeddingsNotFound, err)
	case errors.Is(err, scheduler.ErrInvalidSchedule):
		return wrapCode(CodeInvalidSchedule, err)
	case errors.Is(err, scheduler.ErrDeterminism):
		return wrapCode(CodeDeterminism, err)
	case errors.Is(err, scheduler.ErrIdempotencyRequired):
		return wrapCode(CodeIdempotencyRequired, err)
	default:
		return wrapCode(CodeToolFailure, err)
	}
}
