package fts

import "errors"

var (
	ErrRefNotFound    = errors.New("fts: ref not found")
	ErrNotFrozen      = errors.New("fts: tree has no tree_chunks rows")
	ErrArtifactDrift  = errors.New("fts: stored payload_hash does not match recomputed chunk set")
	ErrDirtyState     = errors.New("fts: fts_chunks for tree is non-empty with no matching artifact")
	ErrGateMissing    = errors.New("fts: fts_maintenance singleton row is missing")
	ErrDataCorruption = errors.New("fts: reconstructed chunk text does not match stored content_hash")
	ErrRowidCollision = errors.New("fts: could not assign a unique rowid after 10 attempts")
	ErrFTSIncomplete  = errors.New("fts: tree_chunks rows are missing from fts_chunks")
	ErrFTSExtraRows   = errors.New("fts: fts_chunks has rows not present in tree_chunks")
	ErrBuildFailed    = errors.New("fts: build step failed")
)
