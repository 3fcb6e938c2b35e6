package retriever

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/roach88/docindex/internal/dag"
	"github.com/roach88/docindex/internal/embeddings"
)

// HybridResult is the outcome of RetrieveWithEmbeddings.
type HybridResult struct {
	Candidates []Candidate
	TreeHash   string
	CommitHash string
}

type scoredChunk struct {
	chunkID   string
	bm25      float64
	cos       float64
	hasBM25   bool
	hasCos    bool
	docID     string
	spanStart int64
	spanEnd   int64
}

// RetrieveWithEmbeddings implements the hybrid BM25+cosine ranking
// (§4.6): union the BM25 and vector candidate sets, min-max normalize
// each set independently, and rank by the α-weighted blend.
func RetrieveWithEmbeddings(
	ctx context.Context, tx *sql.Tx,
	ref, query string, k int,
	provider embeddings.Provider, modelID string, dims int,
	bm25K, vectorK int, alpha float64,
) (HybridResult, error) {
	commitHash, ok, err := dag.ResolveTarget(ctx, tx, ref)
	if err != nil {
		return HybridResult{}, fmt.Errorf("retriever: resolve ref: %w", err)
	}
	if !ok {
		return HybridResult{}, dag.ErrRefNotFound
	}
	commit, err := dag.GetCommit(ctx, tx, commitHash)
	if err != nil {
		return HybridResult{}, fmt.Errorf("retriever: load commit: %w", err)
	}
	treeHash := commit.TreeHash

	var artifactCount int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM index_artifacts
		WHERE tree_hash = ? AND kind = 'chunk_embeddings' AND COALESCE(model_id, '') = ?
	`, treeHash, modelID).Scan(&artifactCount); err != nil {
		return HybridResult{}, fmt.Errorf("retriever: check embeddings artifact: %w", err)
	}
	if artifactCount == 0 {
		return HybridResult{}, ErrEmbeddingsNotFound
	}

	embedResp, err := provider.Embed(ctx, embeddings.EmbedRequest{Inputs: []string{query}, Model: modelID, Dimensions: dims})
	if err != nil {
		return HybridResult{}, fmt.Errorf("retriever: embed query: %w", err)
	}
	if len(embedResp.Vectors) != 1 {
		return HybridResult{}, fmt.Errorf("retriever: provider returned %d vectors for 1 query", len(embedResp.Vectors))
	}
	queryVec := embedResp.Vectors[0]

	bm25Candidates, err := bm25CandidateSet(ctx, tx, query, bm25K)
	if err != nil {
		return HybridResult{}, err
	}
	cosCandidates, err := vectorCandidateSet(ctx, tx, treeHash, modelID, queryVec, vectorK)
	if err != nil {
		return HybridResult{}, err
	}

	merged := make(map[string]*scoredChunk)
	for _, c := range bm25Candidates {
		merged[c.ChunkID] = &scoredChunk{
			chunkID: c.ChunkID, bm25: c.Score, hasBM25: true,
			docID: c.DocID, spanStart: c.SpanStart, spanEnd: c.SpanEnd,
		}
	}
	for _, c := range cosCandidates {
		sc, ok := merged[c.ChunkID]
		if !ok {
			sc = &scoredChunk{chunkID: c.ChunkID}
			merged[c.ChunkID] = sc
		}
		sc.cos = c.Score
		sc.hasCos = true
		// the cosine set is drawn from the ref's frozen tree_chunks, the
		// more authoritative source for this chunk's span at this tree.
		sc.docID, sc.spanStart, sc.spanEnd = c.DocID, c.SpanStart, c.SpanEnd
	}

	chunks := make([]*scoredChunk, 0, len(merged))
	for _, sc := range merged {
		chunks = append(chunks, sc)
	}

	bm25Min, bm25Max := minMax(chunks, func(sc *scoredChunk) (float64, bool) { return sc.bm25, sc.hasBM25 })
	cosMin, cosMax := minMax(chunks, func(sc *scoredChunk) (float64, bool) { return sc.cos, sc.hasCos })

	type hybridCandidate struct {
		chunkID   string
		hybrid    float64
		docID     string
		spanStart int64
		spanEnd   int64
	}
	results := make([]hybridCandidate, 0, len(chunks))
	for _, sc := range chunks {
		bm25Norm := 0.0
		if sc.hasBM25 {
			bm25Norm = normalize(sc.bm25, bm25Min, bm25Max, true) // lower bm25 is better
		}
		cosNorm := 0.0
		if sc.hasCos {
			cosNorm = normalize(sc.cos, cosMin, cosMax, false)
		}
		hybrid := alpha*bm25Norm + (1-alpha)*cosNorm
		results = append(results, hybridCandidate{
			chunkID: sc.chunkID, hybrid: hybrid,
			docID: sc.docID, spanStart: sc.spanStart, spanEnd: sc.spanEnd,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].hybrid != results[j].hybrid {
			return results[i].hybrid > results[j].hybrid
		}
		return results[i].chunkID < results[j].chunkID
	})

	if len(results) > k {
		results = results[:k]
	}

	candidates := make([]Candidate, len(results))
	for i, r := range results {
		candidates[i] = Candidate{
			ChunkID: r.chunkID, Score: r.hybrid,
			DocID: r.docID, SpanStart: r.spanStart, SpanEnd: r.spanEnd,
		}
	}

	return HybridResult{Candidates: candidates, TreeHash: treeHash, CommitHash: commitHash}, nil
}

// normalize maps v into [0,1] given the observed [min,max] range. When
// lowerIsBetter, the direction is inverted so 1.0 always means "best".
func normalize(v, min, max float64, lowerIsBetter bool) float64 {
	if max == min {
		return 1
	}
	n := (v - min) / (max - min)
	if lowerIsBetter {
		return 1 - n
	}
	return n
}

func minMax(chunks []*scoredChunk, get func(*scoredChunk) (float64, bool)) (float64, float64) {
	min, max := math.Inf(1), math.Inf(-1)
	any := false
	for _, sc := range chunks {
		v, ok := get(sc)
		if !ok {
			continue
		}
		any = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !any {
		return 0, 0
	}
	return min, max
}

func bm25CandidateSet(ctx context.Context, tx *sql.Tx, query string, limit int) ([]Candidate, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT chunks_fts.chunk_id, bm25(chunks_fts) AS score, c.doc_id, c.span_start, c.span_end
		FROM chunks_fts
		JOIN chunks c ON c.chunk_id = chunks_fts.chunk_id
		WHERE chunks_fts MATCH ?
		ORDER BY score ASC, chunks_fts.chunk_id ASC
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("retriever: bm25 candidates: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.ChunkID, &c.Score, &c.DocID, &c.SpanStart, &c.SpanEnd); err != nil {
			return nil, fmt.Errorf("retriever: scan bm25 candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func vectorCandidateSet(ctx context.Context, tx *sql.Tx, treeHash, modelID string, queryVec []float32, limit int) ([]Candidate, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT ce.chunk_id, ce.blob, ce.dims, tc.doc_id, tc.span_start, tc.span_end
		FROM chunk_embeddings ce
		JOIN tree_chunks tc ON tc.tree_hash = ce.tree_hash AND tc.chunk_id = ce.chunk_id
		WHERE ce.tree_hash = ? AND ce.model_id = ?
		ORDER BY ce.chunk_id ASC
	`, treeHash, modelID)
	if err != nil {
		return nil, fmt.Errorf("retriever: vector candidates: %w", err)
	}
	defer rows.Close()

	type cosCandidate struct {
		chunkID   string
		cos       float64
		docID     string
		spanStart int64
		spanEnd   int64
	}
	var all []cosCandidate
	for rows.Next() {
		var chunkID, docID string
		var blob []byte
		var dims int
		var spanStart, spanEnd int64
		if err := rows.Scan(&chunkID, &blob, &dims, &docID, &spanStart, &spanEnd); err != nil {
			return nil, fmt.Errorf("retriever: scan embedding: %w", err)
		}
		if dims != len(queryVec) {
			continue // mismatched dims: discard
		}
		vec, err := embeddings.DecodeFloat32LE(blob, dims)
		if err != nil {
			return nil, fmt.Errorf("retriever: decode embedding: %w", err)
		}
		all = append(all, cosCandidate{
			chunkID: chunkID, cos: cosineSimilarity(queryVec, vec),
			docID: docID, spanStart: spanStart, spanEnd: spanEnd,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].cos != all[j].cos {
			return all[i].cos > all[j].cos
		}
		return all[i].chunkID < all[j].chunkID
	})
	if len(all) > limit {
		all = all[:limit]
	}

	candidates := make([]Candidate, len(all))
	for i, c := range all {
		candidates[i] = Candidate{
			ChunkID: c.chunkID, Score: c.cos,
			DocID: c.docID, SpanStart: c.spanStart, SpanEnd: c.spanEnd,
		}
	}
	return candidates, nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
