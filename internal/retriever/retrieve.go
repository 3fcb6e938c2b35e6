package retriever

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/docindex/internal/dag"
)

// Candidate is one ranked result: a chunk and its score (lower is
// better for BM25, higher is better for cosine/hybrid — callers compare
// within one result set, never across), plus the provenance needed to
// trace it back to a document and span.
type Candidate struct {
	ChunkID   string  `json:"chunk_id"`
	Score     float64 `json:"score"`
	DocID     string  `json:"doc_id"`
	SpanStart int64   `json:"span_start"`
	SpanEnd   int64   `json:"span_end"`
}

// Result is the outcome of Retrieve: ranked candidates plus any
// warnings about the state of HEAD and the working tree.
type Result struct {
	Candidates       []Candidate
	Warnings         []string
	EffectiveVersion string
}

// Retrieve ranks the working tree's chunks by BM25 relevance to query,
// tiebreaking by chunk_id ASC, truncated to k. k is assumed validated
// to [1,25] by the caller (the tool-input contract).
func Retrieve(ctx context.Context, tx *sql.Tx, query string, k int, requestedIndexVersion string) (Result, error) {
	var result Result

	workingHash, _, err := dag.CreateTreeFromCurrentState(ctx, tx)
	if err != nil {
		return Result{}, fmt.Errorf("retriever: hash working tree: %w", err)
	}
	result.EffectiveVersion = workingHash

	headHash, headOK, err := dag.ResolveTarget(ctx, tx, "HEAD")
	if err != nil {
		return Result{}, fmt.Errorf("retriever: resolve HEAD: %w", err)
	}
	if !headOK {
		result.Warnings = append(result.Warnings, WarnNoCommits)
	} else {
		commit, err := dag.GetCommit(ctx, tx, headHash)
		if err != nil {
			return Result{}, fmt.Errorf("retriever: load HEAD commit: %w", err)
		}
		if commit.TreeHash != workingHash {
			result.Warnings = append(result.Warnings, WarnWorkingTreeDirty)
		}
	}

	if requestedIndexVersion != "" && requestedIndexVersion != result.EffectiveVersion {
		result.Warnings = append(result.Warnings, WarnVersionMismatch)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT chunks_fts.chunk_id, bm25(chunks_fts) AS score, c.doc_id, c.span_start, c.span_end
		FROM chunks_fts
		JOIN chunks c ON c.chunk_id = chunks_fts.chunk_id
		WHERE chunks_fts MATCH ?
		ORDER BY score ASC, chunks_fts.chunk_id ASC
		LIMIT ?
	`, query, k)
	if err != nil {
		return Result{}, fmt.Errorf("retriever: bm25 query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ChunkID, &c.Score, &c.DocID, &c.SpanStart, &c.SpanEnd); err != nil {
			return Result{}, fmt.Errorf("retriever: scan candidate: %w", err)
		}
		result.Candidates = append(result.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("retriever: bm25 query: %w", err)
	}
	return result, nil
}
