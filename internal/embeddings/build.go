package embeddings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/docindex/internal/codec"
	"github.com/roach88/docindex/internal/dag"
)

const (
	kindChunkEmbeddings = "chunk_embeddings"
	defaultBatchSize    = 128
	maxBatchSize        = 2048
)

// BuildResult reports the outcome of build_embeddings.
type BuildResult struct {
	ArtifactID string
	TreeHash   string
	CommitHash string
	ChunkCount int
	Dims       int
}

type chunkText struct {
	ChunkID string
	Text    string
}

// BuildEmbeddings implements §4.5: require the working tree to exactly
// match the target tree's frozen content, embed every chunk in batches,
// and register a chunk_embeddings artifact.
func BuildEmbeddings(ctx context.Context, tx *sql.Tx, ref string, provider Provider, dims, batchSize int) (BuildResult, error) {
	commitHash, ok, err := dag.ResolveTarget(ctx, tx, ref)
	if err != nil {
		return BuildResult{}, fmt.Errorf("embeddings: resolve ref: %w", err)
	}
	if !ok {
		return BuildResult{}, ErrRefNotFound
	}
	commit, err := dag.GetCommit(ctx, tx, commitHash)
	if err != nil {
		return BuildResult{}, fmt.Errorf("embeddings: load commit: %w", err)
	}
	treeHash := commit.TreeHash

	workingHash, _, err := dag.CreateTreeFromCurrentState(ctx, tx)
	if err != nil {
		return BuildResult{}, fmt.Errorf("embeddings: hash working tree: %w", err)
	}
	if workingHash != treeHash {
		return BuildResult{}, ErrWorkingTreeDirty
	}

	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}

	chunks, err := loadChunkTexts(ctx, tx, treeHash)
	if err != nil {
		return BuildResult{}, err
	}

	modelID := provider.ID()
	uniformDims := 0

	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		inputs := make([]string, len(batch))
		for i, c := range batch {
			inputs[i] = c.Text
		}

		resp, err := provider.Embed(ctx, EmbedRequest{Inputs: inputs, Model: modelID, Dimensions: dims})
		if err != nil {
			return BuildResult{}, fmt.Errorf("embeddings: provider embed: %w", err)
		}
		if len(resp.Vectors) != len(batch) {
			return BuildResult{}, fmt.Errorf("embeddings: provider returned %d vectors for %d inputs", len(resp.Vectors), len(batch))
		}

		for i, c := range batch {
			vec := resp.Vectors[i]
			if uniformDims == 0 {
				uniformDims = len(vec)
			}
			if len(vec) != uniformDims {
				return BuildResult{}, ErrEmbeddingDims
			}
			blob := EncodeFloat32LE(vec)
			contentHash := codec.SHA256Hex(blob)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chunk_embeddings (tree_hash, chunk_id, model_id, blob, dims, content_hash)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(tree_hash, chunk_id, model_id) DO UPDATE SET
					blob = excluded.blob, dims = excluded.dims, content_hash = excluded.content_hash
			`, treeHash, c.ChunkID, modelID, blob, len(vec), contentHash); err != nil {
				return BuildResult{}, fmt.Errorf("embeddings: upsert chunk_embeddings: %w", err)
			}
		}
	}

	artifactID, err := registerArtifact(ctx, tx, treeHash, commitHash, ref, modelID, uniformDims, len(chunks))
	if err != nil {
		return BuildResult{}, err
	}

	return BuildResult{
		ArtifactID: artifactID,
		TreeHash:   treeHash,
		CommitHash: commitHash,
		ChunkCount: len(chunks),
		Dims:       uniformDims,
	}, nil
}

func loadChunkTexts(ctx context.Context, tx *sql.Tx, treeHash string) ([]chunkText, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tc.chunk_id, tc.span_start, tc.span_end, b.bytes
		FROM tree_chunks tc
		JOIN tree_docs td ON td.tree_hash = tc.tree_hash AND td.doc_id = tc.doc_id
		JOIN blobs b ON b.content_hash = td.content_hash
		WHERE tc.tree_hash = ?
		ORDER BY tc.chunk_id ASC
	`, treeHash)
	if err != nil {
		return nil, fmt.Errorf("embeddings: load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []chunkText
	for rows.Next() {
		var chunkID string
		var start, end int64
		var blob []byte
		if err := rows.Scan(&chunkID, &start, &end, &blob); err != nil {
			return nil, fmt.Errorf("embeddings: scan chunk: %w", err)
		}
		if start < 0 || end < start || end > int64(len(blob)) {
			return nil, fmt.Errorf("%w: chunk %s span [%d,%d) exceeds %d bytes",
				ErrTreePayloadMissing, chunkID, start, end, len(blob))
		}
		chunks = append(chunks, chunkText{ChunkID: chunkID, Text: string(blob[start:end])})
	}
	return chunks, rows.Err()
}

func registerArtifact(ctx context.Context, tx *sql.Tx, treeHash, commitHash, ref, providerID string, dims, chunkCount int) (string, error) {
	manifest := codec.Object{
		"kind":              codec.S(kindChunkEmbeddings),
		"tree_hash":         codec.S(treeHash),
		"provider_id":       codec.S(providerID),
		"dims":              codec.I(int64(dims)),
		"chunk_count":       codec.I(int64(chunkCount)),
		"tree_entries_hash": codec.S(treeHash),
	}
	manifestHash, err := codec.HashCanonical(manifest)
	if err != nil {
		return "", fmt.Errorf("embeddings: hash manifest: %w", err)
	}
	manifestJSON, err := codec.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("embeddings: marshal manifest: %w", err)
	}

	artifactID, err := codec.HashCanonical(codec.Object{
		"kind":          codec.S(kindChunkEmbeddings),
		"tree_hash":     codec.S(treeHash),
		"provider_id":   codec.S(providerID),
		"dims":          codec.I(int64(dims)),
		"manifest_hash": codec.S(manifestHash),
	})
	if err != nil {
		return "", fmt.Errorf("embeddings: hash artifact id: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_seq), 0) + 1 FROM index_artifacts`,
	).Scan(&seq); err != nil {
		return "", fmt.Errorf("embeddings: next seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO index_artifacts
			(artifact_id, tree_hash, kind, model_id, manifest_json, payload_hash, created_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tree_hash, kind, COALESCE(model_id, '')) DO UPDATE SET
			manifest_json = excluded.manifest_json, payload_hash = excluded.payload_hash
	`, artifactID, treeHash, kindChunkEmbeddings, providerID, string(manifestJSON), manifestHash, seq); err != nil {
		return "", fmt.Errorf("embeddings: insert artifact: %w", err)
	}

	if err := upsertArtifactRef(ctx, tx, "commit", commitHash, kindChunkEmbeddings, artifactID); err != nil {
		return "", err
	}
	if ref == "HEAD" || ref == "main" {
		if err := upsertArtifactRef(ctx, tx, "ref", ref, kindChunkEmbeddings, artifactID); err != nil {
			return "", err
		}
	}
	return artifactID, nil
}

func upsertArtifactRef(ctx context.Context, tx *sql.Tx, refType, refName, kind, artifactID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO artifact_refs (ref_type, ref_name, kind, artifact_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ref_type, ref_name, kind) DO UPDATE SET artifact_id = excluded.artifact_id
	`, refType, refName, kind, artifactID)
	if err != nil {
		return fmt.Errorf("embeddings: upsert artifact_refs: %w", err)
	}
	return nil
}
