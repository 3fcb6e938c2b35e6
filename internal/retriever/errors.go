package retriever

import "errors"

var ErrEmbeddingsNotFound = errors.New("retriever: no chunk_embeddings artifact for tree and model")

// Warning strings emitted alongside retrieval results; these mirror the
// tool-surface warning taxonomy rather than being hard errors.
const (
	WarnNoCommits        = "WARN_NO_COMMITS"
	WarnWorkingTreeDirty = "WARN_WORKING_TREE_DIRTY"
	WarnVersionMismatch  = "WARN_VERSION_MISMATCH"
)
