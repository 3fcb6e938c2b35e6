// Package fts builds and validates the per-tree, history-correct full
// text index: a rebuild of fts_chunks/fts_chunks_fts made between
// opening and closing the fts_maintenance gate, plus the validate_fts
// attestation that
// the index is complete and internally consistent.
package fts
