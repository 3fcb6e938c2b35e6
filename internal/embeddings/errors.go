package embeddings

import "errors"

var (
	ErrRefNotFound        = errors.New("embeddings: ref not found")
	ErrWorkingTreeDirty   = errors.New("embeddings: working tree does not hash-equal the target tree")
	ErrEmbeddingDims      = errors.New("embeddings: provider returned vectors with non-uniform or unexpected dimensions")
	ErrEmbeddingsNotFound = errors.New("embeddings: no chunk_embeddings artifact for tree and model")
	ErrTreePayloadMissing = errors.New("embeddings: chunk span out of bounds for its document's blob bytes")
)
