package dag

import "errors"

// Sentinel errors the tool layer (internal/tools) maps onto the wire
// error taxonomy (§6). dag itself never knows about tool error codes.
var (
	ErrRefNotFound       = errors.New("dag: ref not found")
	ErrCommitNotFound    = errors.New("dag: commit not found")
	ErrTreeNotFound      = errors.New("dag: tree not found")
	ErrTreeHashMissing   = errors.New("dag: tree hash missing")
	ErrTreeDocsMissing   = errors.New("dag: tree_docs rows missing for a non-empty tree")
	ErrTreeChunksMissing = errors.New("dag: tree_chunks rows missing for a non-empty tree")
	ErrBlobMissing       = errors.New("dag: referenced blob missing")
	ErrDataCorruption    = errors.New("dag: stored entries are not valid JSON")
	ErrRefMismatch       = errors.New("dag: ref's current commit is not among the new commit's parents")
)
