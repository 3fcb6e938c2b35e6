package retriever_test

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
	"github.com/roach88/docindex/internal/retriever"
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

func seedWorkingChunk(t *testing.T, ctx context.Context, tx *sql.Tx, docID, text string) {
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
	chunkID := docID + "-c0"
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chunks (chunk_id, doc_id, span_start, span_end, text, content_hash) VALUES (?, ?, ?, ?, ?, ?)`,
		chunkID, docID, 0, int64(len(text)), text, chunkHash)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chunks_fts (chunk_id, text) VALUES (?, ?)`, chunkID, text)
	require.NoError(t, err)
}

func TestRetrieve_WarnNoCommits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var result retriever.Result
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		seedWorkingChunk(t, ctx, tx, "doc-a", "hello world")
		r, err := retriever.Retrieve(ctx, tx, "hello", 5, "")
		result = r
		return err
	}))

	assert.Contains(t, result.Warnings, retriever.WarnNoCommits)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "doc-a-c0", result.Candidates[0].ChunkID)
	assert.Equal(t, "doc-a", result.Candidates[0].DocID)
	assert.Equal(t, int64(0), result.Candidates[0].SpanStart)
	assert.Equal(t, int64(len("hello world")), result.Candidates[0].SpanEnd)
}

func TestRetrieve_NoWarningsWhenClean(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		seedWorkingChunk(t, ctx, tx, "doc-a", "hello world")
		h, entries, err := dag.CreateTreeFromCurrentState(ctx, tx)
		if err != nil {
			return err
		}
		if err := dag.SaveTree(ctx, tx, h, entries); err != nil {
			return err
		}
		c, err := dag.CreateCommit(ctx, tx, h, nil, "m")
		if err != nil {
			return err
		}
		return dag.UpdateRef(ctx, tx, "HEAD", c)
	}))

	var result retriever.Result
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := retriever.Retrieve(ctx, tx, "hello", 5, "")
		result = r
		return err
	}))
	assert.Empty(t, result.Warnings)
}

func TestRetrieve_WarnWorkingTreeDirty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		seedWorkingChunk(t, ctx, tx, "doc-a", "hello world")
		h, entries, err := dag.CreateTreeFromCurrentState(ctx, tx)
		if err != nil {
			return err
		}
		if err := dag.SaveTree(ctx, tx, h, entries); err != nil {
			return err
		}
		c, err := dag.CreateCommit(ctx, tx, h, nil, "m")
		if err != nil {
			return err
		}
		return dag.UpdateRef(ctx, tx, "HEAD", c)
	}))

	// dirty the working tree after the commit
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		seedWorkingChunk(t, ctx, tx, "doc-b", "goodbye world")
		return nil
	}))

	var result retriever.Result
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := retriever.Retrieve(ctx, tx, "goodbye", 5, "")
		result = r
		return err
	}))
	assert.Contains(t, result.Warnings, retriever.WarnWorkingTreeDirty)
}

func TestRetrieveWithEmbeddings_Success(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	provider := embeddings.NewLocalProvider("local-test")

	var treeHash string
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		seedWorkingChunk(t, ctx, tx, "doc-a", "hello world")
		h, entries, err := dag.CreateTreeFromCurrentState(ctx, tx)
		if err != nil {
			return err
		}
		treeHash = h
		if err := dag.SaveTree(ctx, tx, h, entries); err != nil {
			return err
		}
		c, err := dag.CreateCommit(ctx, tx, h, nil, "m")
		if err != nil {
			return err
		}
		return dag.UpdateRef(ctx, tx, "main", c)
	}))

	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := embeddings.BuildEmbeddings(ctx, tx, "main", provider, 8, 0)
		return err
	}))

	var result retriever.HybridResult
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := retriever.RetrieveWithEmbeddings(ctx, tx, "main", "hello", 5, provider, "local-test", 8, 20, 50, 0.5)
		result = r
		return err
	}))

	assert.Equal(t, treeHash, result.TreeHash)
	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "doc-a-c0", result.Candidates[0].ChunkID)
	assert.Equal(t, "doc-a", result.Candidates[0].DocID)
	assert.Equal(t, int64(len("hello world")), result.Candidates[0].SpanEnd)
}

func TestRetrieveWithEmbeddings_NotFound(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	provider := embeddings.NewLocalProvider("local-test")
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		seedWorkingChunk(t, ctx, tx, "doc-a", "hello world")
		h, entries, err := dag.CreateTreeFromCurrentState(ctx, tx)
		if err != nil {
			return err
		}
		if err := dag.SaveTree(ctx, tx, h, entries); err != nil {
			return err
		}
		c, err := dag.CreateCommit(ctx, tx, h, nil, "m")
		if err != nil {
			return err
		}
		return dag.UpdateRef(ctx, tx, "main", c)
	}))

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := retriever.RetrieveWithEmbeddings(ctx, tx, "main", "hello", 5, provider, "local-test", 8, 20, 50, 0.5)
		return err
	})
	assert.ErrorIs(t, err, retriever.ErrEmbeddingsNotFound)
}
