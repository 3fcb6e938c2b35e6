package tools_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docindex/internal/codec"
	"github.com/roach88/docindex/internal/embeddings"
	"github.com/roach88/docindex/internal/store"
	"github.com/roach88/docindex/internal/tools"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedDoc(t *testing.T, s *store.Store, docID, text string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		contentHash := codec.SHA256Hex([]byte(text))
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO blobs (content_hash, bytes) VALUES (?, ?)`, contentHash, []byte(text)); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (doc_id, title, content_hash, updated_at) VALUES (?, ?, ?, ?)`,
			docID, "title", contentHash, "1970-01-01T00:00:00.000Z"); err != nil {
			return err
		}
		chunkHash := codec.SHA256Hex([]byte(text))
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (chunk_id, doc_id, span_start, span_end, text, content_hash) VALUES (?, ?, ?, ?, ?, ?)`,
			docID+"-c0", docID, 0, int64(len(text)), text, chunkHash)
		return err
	}))
}

func TestCommitIndexAndCheckoutIndex(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedDoc(t, s, "doc-a", "hello world")

	res := tools.CommitIndex(ctx, s, tools.CommitIndexInput{Message: "first", RefName: "HEAD"})
	require.NoError(t, res.Err)
	first := res.Value.(tools.CommitIndexValue)
	assert.Len(t, first.CommitHash, 64)

	res = tools.CheckoutIndex(ctx, s, tools.CheckoutIndexInput{Target: "HEAD"})
	require.NoError(t, res.Err)
	checked := res.Value.(tools.CheckoutIndexValue)
	assert.Equal(t, first.TreeHash, checked.TreeHash)
}

func TestCommitIndex_RefMismatchWithoutDeclaredParent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedDoc(t, s, "doc-a", "hello world")
	res := tools.CommitIndex(ctx, s, tools.CommitIndexInput{Message: "first", RefName: "main"})
	require.NoError(t, res.Err)

	seedDoc(t, s, "doc-b", "goodbye world")
	res = tools.CommitIndex(ctx, s, tools.CommitIndexInput{Message: "second", RefName: "main"})
	require.Error(t, res.Err)
	assert.Equal(t, tools.CodeRefMismatch, tools.CodeOf(res.Err))
}

func TestCommitIndex_RefAdvancesWhenParentDeclared(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedDoc(t, s, "doc-a", "hello world")
	res := tools.CommitIndex(ctx, s, tools.CommitIndexInput{Message: "first", RefName: "main"})
	require.NoError(t, res.Err)
	first := res.Value.(tools.CommitIndexValue)

	seedDoc(t, s, "doc-b", "goodbye world")
	res = tools.CommitIndex(ctx, s, tools.CommitIndexInput{
		Message: "second", RefName: "main", Parents: []string{first.CommitHash},
	})
	require.NoError(t, res.Err)
}

func TestCheckoutIndex_UnknownRefIsClassified(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := tools.CheckoutIndex(ctx, s, tools.CheckoutIndexInput{Target: "no-such-ref"})
	require.Error(t, res.Err)
	assert.Equal(t, tools.CodeRefNotFound, tools.CodeOf(res.Err))
}

func TestDiffIndex_AddedChanged(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedDoc(t, s, "doc-a", "v1")
	res := tools.CommitIndex(ctx, s, tools.CommitIndexInput{Message: "m1", RefName: "r1"})
	require.NoError(t, res.Err)
	first := res.Value.(tools.CommitIndexValue)

	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM chunks`)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM documents`)
		return err
	}))
	seedDoc(t, s, "doc-a", "v1")
	seedDoc(t, s, "doc-b", "v2")
	res = tools.CommitIndex(ctx, s, tools.CommitIndexInput{Message: "m2", RefName: "r2"})
	require.NoError(t, res.Err)
	second := res.Value.(tools.CommitIndexValue)

	res = tools.DiffIndex(ctx, s, tools.DiffIndexInput{From: first.CommitHash, To: second.CommitHash})
	require.NoError(t, res.Err)
	diff := res.Value.(tools.DiffIndexValue)
	assert.Equal(t, []string{"doc-b"}, diff.Added)
	assert.Empty(t, diff.Changed)
}

func TestRetrieve_WarnsWhenNoCommits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedDoc(t, s, "doc-a", "hello world")
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks_fts (chunk_id, text) VALUES (?, ?)`, "doc-a-c0", "hello world")
		return err
	}))

	res := tools.Retrieve(ctx, s, tools.RetrieveInput{Query: "hello", K: 5})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Warnings, "WARN_NO_COMMITS")
}

func TestBuildEmbeddings_UnknownProvider(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := tools.BuildEmbeddings(ctx, s, tools.Providers{}, tools.BuildEmbeddingsInput{Ref: "HEAD", ProviderID: "missing"})
	require.Error(t, res.Err)
}

func TestBuildEmbeddings_WithLocalProvider(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedDoc(t, s, "doc-a", "hello world")
	commitRes := tools.CommitIndex(ctx, s, tools.CommitIndexInput{Message: "m", RefName: "HEAD"})
	require.NoError(t, commitRes.Err)

	providers := tools.Providers{"local": embeddings.NewLocalProvider("local")}
	res := tools.BuildEmbeddings(ctx, s, providers, tools.BuildEmbeddingsInput{Ref: "HEAD", ProviderID: "local", Dims: 8})
	require.NoError(t, res.Err)
	value := res.Value.(tools.BuildEmbeddingsValue)
	assert.Equal(t, 8, value.Dims)
}

func TestGCArtifacts_DryRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedDoc(t, s, "doc-a", "hello world")
	commitRes := tools.CommitIndex(ctx, s, tools.CommitIndexInput{Message: "m", RefName: "main"})
	require.NoError(t, commitRes.Err)

	res := tools.GCArtifacts(ctx, s, tools.GCArtifactsInput{DryRun: true})
	require.NoError(t, res.Err)
	value := res.Value.(tools.GCArtifactsValue)
	commitValue := commitRes.Value.(tools.CommitIndexValue)
	assert.Contains(t, value.ReachableTrees, commitValue.TreeHash)
}

func TestScheduleTask_DryRunThenCommit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	dry := tools.ScheduleTask(ctx, s, tools.ScheduleTaskInput{
		Title: "job", Action: "build_fts", RunAt: "2026-01-01T00:00:00Z", DryRun: true,
	})
	require.NoError(t, dry.Err)

	committed := tools.ScheduleTask(ctx, s, tools.ScheduleTaskInput{
		Title: "job", Action: "build_fts", RunAt: "2026-01-01T00:00:00Z", IdempotencyKey: "key-1",
	})
	require.NoError(t, committed.Err)
	first := committed.Value.(tools.ScheduleTaskValue)
	assert.Equal(t, "pending", first.Status)

	resubmit := tools.ScheduleTask(ctx, s, tools.ScheduleTaskInput{
		Title: "job changed", Action: "build_fts", RunAt: "2026-01-01T00:00:00Z", IdempotencyKey: "key-1",
	})
	require.NoError(t, resubmit.Err)
	second := resubmit.Value.(tools.ScheduleTaskValue)
	assert.True(t, second.IdempotentHit)
	assert.Equal(t, first.TaskID, second.TaskID)
}

func TestScheduleTask_MissingIdempotencyKeyIsClassified(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res := tools.ScheduleTask(ctx, s, tools.ScheduleTaskInput{
		Title: "job", Action: "build_fts", RunAt: "2026-01-01T00:00:00Z",
	})
	require.Error(t, res.Err)
	assert.Equal(t, tools.CodeIdempotencyRequired, tools.CodeOf(res.Err))
}
