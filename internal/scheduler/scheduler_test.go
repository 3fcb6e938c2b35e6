package scheduler_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docindex/internal/codec"
	"github.com/roach88/docindex/internal/scheduler"
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

func TestResolveNextRunAt_ExplicitRunAtWins(t *testing.T) {
	got, err := scheduler.ResolveNextRunAt("2026-01-01T00:00:00Z", "2025-01-01T00:00:00Z", 3600)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00Z", got)
}

func TestResolveNextRunAt_ReferencePlusInterval(t *testing.T) {
	got, err := scheduler.ResolveNextRunAt("", "2025-01-01T00:00:00Z", 3600)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T01:00:00Z", got)
}

func TestResolveNextRunAt_IntervalWithoutReferenceIsNondeterministic(t *testing.T) {
	_, err := scheduler.ResolveNextRunAt("", "", 3600)
	assert.ErrorIs(t, err, scheduler.ErrDeterminism)
}

func TestResolveNextRunAt_NeitherGivenIsInvalid(t *testing.T) {
	_, err := scheduler.ResolveNextRunAt("", "", 0)
	assert.ErrorIs(t, err, scheduler.ErrInvalidSchedule)
}

func TestSubmit_DryRunIsDeterministicAndNotPersisted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := scheduler.SubmitInput{
		Title:         "  Reindex docs  ",
		Action:        "  ReIndex  ",
		Payload:       codec.Object{"k": codec.S("v")},
		ReferenceTime: "2025-06-01T00:00:00Z",
		IntervalSeconds: 60,
		DryRun:        true,
	}

	var first, second scheduler.SubmitResult
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := scheduler.Submit(ctx, tx, in)
		first = r
		return err
	}))
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := scheduler.Submit(ctx, tx, in)
		second = r
		return err
	}))

	assert.Equal(t, "dry_run", first.Status)
	assert.Equal(t, first.TaskID, second.TaskID)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestSubmit_CommitRequiresIdempotencyKey(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := scheduler.SubmitInput{
		Title:           "job",
		Action:          "build_fts",
		Payload:         codec.Object{},
		ReferenceTime:   "2025-06-01T00:00:00Z",
		IntervalSeconds: 60,
	}

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := scheduler.Submit(ctx, tx, in)
		return err
	})
	assert.ErrorIs(t, err, scheduler.ErrIdempotencyRequired)
}

func TestSubmit_CommitPersistsAndIdempotentResubmitReturnsStoredPayload(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := scheduler.SubmitInput{
		Title:           "job",
		Action:          "build_fts",
		Payload:         codec.Object{"ref": codec.S("main")},
		ReferenceTime:   "2025-06-01T00:00:00Z",
		IntervalSeconds: 60,
		IdempotencyKey:  "fixed-key-1",
	}

	var first scheduler.SubmitResult
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := scheduler.Submit(ctx, tx, in)
		first = r
		return err
	}))
	assert.Equal(t, "pending", first.Status)
	assert.False(t, first.IdempotentHit)

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count))
	assert.Equal(t, 1, count)

	resubmit := in
	resubmit.Title = "a different title entirely"
	resubmit.Payload = codec.Object{"ref": codec.S("something-else")}

	var second scheduler.SubmitResult
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := scheduler.Submit(ctx, tx, resubmit)
		second = r
		return err
	}))

	assert.True(t, second.IdempotentHit)
	assert.Equal(t, first.TaskID, second.TaskID)
	assert.Equal(t, codec.Object{"ref": codec.S("main")}, second.Payload)

	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSubmit_DifferentTasksYieldDifferentDryRunIDs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := scheduler.SubmitInput{
		Title:           "job",
		Action:          "build_fts",
		Payload:         codec.Object{},
		ReferenceTime:   "2025-06-01T00:00:00Z",
		IntervalSeconds: 60,
		DryRun:          true,
	}
	other := base
	other.Title = "another job"

	var a, b scheduler.SubmitResult
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := scheduler.Submit(ctx, tx, base)
		a = r
		return err
	}))
	require.NoError(t, s.WithTx(ctx, func(tx *sql.Tx) error {
		r, err := scheduler.Submit(ctx, tx, other)
		b = r
		return err
	}))

	assert.NotEqual(t, a.TaskID, b.TaskID)
}
