package embeddings_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docindex/internal/codec"
	"github.com/roach88/docindex/internal/dag"
	"github.com/roach88/docindex/internal/embeddings"
	"github.com/roach88/docindex/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedFrozenTree(t *testing.T, ctx context.Context, tx *sql.Tx, docID, text string) (treeHash, commitHash string) {
	t.Helper()
	contentHash := codec.SHA256Hex([]byte(text))
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO blobs (content_hash, bytes) VALUES (?, ?)`, contentHash, []byte(text))
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (doc_id, title, content_hash, updated_at) VALUES (?, ?, ?, ?)`,
		docID, "title", contentHash, "1970-01-01T00:00:00.000Z")
	require.NoError(t, err)
	chunkHash := codec.SHA256Hex([]byte(text))
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chunks (chunk_id, doc_id, span_start, span_end, text, content_hash) VALUES (?, ?, ?, ?, ?, ?)`,
		docID+"-c0", docID, 0, int64(len(text)), text, chunkHash)
	require.NoError(t, err)

	h, entries, err := dag.CreateTreeFromCurrentState(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, dag.SaveTree(ctx, tx, h, entries))
	c, err := dag.CreateCommit(ctx, tx, h, nil, "m")
	require.NoError(t, err)
	require.NoError(t, dag.UpdateRef(ctx, tx, "main", c))
	return h, c
}

func TestLocalProvider_Deterministic(t *testing.T) {
	p := embeddings.NewLocalProvider("local-test")
	ctx := context.Background()

	r1, err := p.Embed(ctx, embeddings.EmbedRequest{Inputs: []string{"hello"}, Dimensions: 4})
	require.NoError(t, err)
	r2, err := p.Embed(ctx, embeddings.EmbedRequest{Inputs: []string{"hello"}, Dimensions: 4})
	require.NoError(t, err)

	assert.Equal(t, r1.Vectors, r2.Vectors)
	assert.Len(t, r1.Vectors[0], 4)
}

func TestEncodeDecodeFloat32LE_RoundTrip(t *testing.T) {
	vec := []float32{0.1, -0.5, 3.25, 0}
	blob := embeddings.EncodeFloat32LE(vec)
	decoded, err := embeddings.DecodeFloat32LE(blob, len(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestBuildEmbeddings_Success(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var treeHash string
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		treeHash, _ = seedFrozenTree(t, ctx, tx, "doc-a", "hello world")
		return nil
	}))

	provider := embeddings.NewLocalProvider("local-test")

	var result embeddings.BuildResult
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := embeddings.BuildEmbeddings(ctx, tx, "main", provider, 8, 0)
		result = r
		return err
	}))

	assert.Equal(t, treeHash, result.TreeHash)
	assert.Equal(t, 1, result.ChunkCount)
	assert.Equal(t, 8, result.Dims)
	assert.Len(t, result.ArtifactID, 64)

	var count int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM chunk_embeddings WHERE tree_hash = ?`, treeHash,
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestBuildEmbeddings_WorkingTreeDirty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		seedFrozenTree(t, ctx, tx, "doc-a", "hello world")
		// dirty the working tree after freezing
		_, err := tx.ExecContext(ctx, `INSERT INTO documents (doc_id, title, content_hash, updated_at)
			VALUES ('doc-b', 't', (SELECT content_hash FROM documents LIMIT 1), '1970-01-01T00:00:00.000Z')`)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO chunks (chunk_id, doc_id, span_start, span_end, text, content_hash)
			SELECT 'doc-b-c0', 'doc-b', span_start, span_end, text, content_hash FROM chunks WHERE chunk_id = 'doc-a-c0'`)
		return err
	}))

	provider := embeddings.NewLocalProvider("local-test")
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := embeddings.BuildEmbeddings(ctx, tx, "main", provider, 8, 0)
		return err
	})
	assert.ErrorIs(t, err, embeddings.ErrWorkingTreeDirty)
}

func TestBuildEmbeddings_RefNotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	provider := embeddings.NewLocalProvider("local-test")
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := embeddings.BuildEmbeddings(ctx, tx, "nonexistent", provider, 8, 0)
		return err
	})
	assert.ErrorIs(t, err, embeddings.ErrRefNotFound)
}
