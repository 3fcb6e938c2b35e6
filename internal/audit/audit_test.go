package audit_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/docindex/internal/audit"
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

func TestBuild_EqualResultsYieldEqualOutputsHash(t *testing.T) {
	a, err := audit.Build(audit.BuildInput{
		RequestID: "req-1",
		ToolName:  "retrieve",
		Input:     map[string]any{"query": "x"},
		Result:    map[string]any{"candidates": []any{}},
		Timestamp: "2026-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	b, err := audit.Build(audit.BuildInput{
		RequestID: "req-2",
		ToolName:  "retrieve",
		Input:     map[string]any{"query": "y"},
		Result:    map[string]any{"candidates": []any{}},
		Timestamp: "2026-01-02T00:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, a.OutputsHash, b.OutputsHash)
	assert.NotEqual(t, a.InputsHash, b.InputsHash)
	assert.NotEqual(t, a.RequestID, b.RequestID)
}

func TestBuild_NilResultUsesNullHash(t *testing.T) {
	env, err := audit.Build(audit.BuildInput{
		RequestID: "req-err",
		ToolName:  "retrieve",
		Input:     map[string]any{"query": "x"},
		Result:    nil,
		Errors:    []string{"ERR_REF_NOT_FOUND"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, env.OutputsHash)
	assert.Equal(t, []string{"ERR_REF_NOT_FOUND"}, env.Errors)
	assert.Equal(t, []string{}, env.Warnings)
	assert.Equal(t, []string{}, env.Provenance)
}

func TestLogger_AppendsEnvelope(t *testing.T) {
	s := openTestStore(t)
	seq := audit.NewSeqCounter()
	logger := audit.NewLogger(s, seq, nil)

	env, err := audit.Build(audit.BuildInput{
		RequestID: "req-log-1",
		ToolName:  "retrieve",
		Result:    map[string]any{"ok": true},
		Timestamp: "2026-01-01T00:00:00Z",
	})
	require.NoError(t, err)

	logger.Enqueue(env)
	logger.Close()

	var count int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM audit_log WHERE request_id = ?`, "req-log-1",
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLogger_DuplicateRequestIDIsIgnored(t *testing.T) {
	s := openTestStore(t)
	seq := audit.NewSeqCounter()
	logger := audit.NewLogger(s, seq, nil)

	env, err := audit.Build(audit.BuildInput{
		RequestID: "req-dup",
		ToolName:  "retrieve",
		Result:    map[string]any{"ok": true},
	})
	require.NoError(t, err)

	logger.Enqueue(env)
	logger.Enqueue(env)
	logger.Close()

	var count int
	require.NoError(t, s.DB().QueryRow(
		`SELECT COUNT(*) FROM audit_log WHERE request_id = ?`, "req-dup",
	).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestBuild_StructInputAndFloatResultHash(t *testing.T) {
	type commitInput struct {
		Message string   `json:"message"`
		Parents []string `json:"parents"`
	}
	type candidate struct {
		ChunkID string  `json:"chunk_id"`
		Score   float64 `json:"score"`
	}
	type retrieveResult struct {
		Candidates []candidate `json:"candidates"`
	}

	a, err := audit.Build(audit.BuildInput{
		RequestID: "req-1",
		ToolName:  "commit_index",
		Input:     commitInput{Message: "m", Parents: nil},
		Result:    retrieveResult{Candidates: []candidate{{ChunkID: "c1", Score: 0.5}}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.InputsHash)
	assert.NotEmpty(t, a.OutputsHash)

	b, err := audit.Build(audit.BuildInput{
		RequestID: "req-2",
		ToolName:  "commit_index",
		Input:     commitInput{Message: "m", Parents: nil},
		Result:    retrieveResult{Candidates: []candidate{{ChunkID: "c1", Score: 0.5}}},
	})
	require.NoError(t, err)
	assert.Equal(t, a.InputsHash, b.InputsHash)
	assert.Equal(t, a.OutputsHash, b.OutputsHash)

	c, err := audit.Build(audit.BuildInput{
		RequestID: "req-3",
		ToolName:  "commit_index",
		Input:     commitInput{Message: "m", Parents: nil},
		Result:    retrieveResult{Candidates: []candidate{{ChunkID: "c1", Score: 0.75}}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, a.OutputsHash, c.OutputsHash)
}

func TestSeqCounter_Monotonic(t *testing.T) {
	c := audit.NewSeqCounter()
	a := c.Next()
	b := c.Next()
	assert.Less(t, a, b)
}

func TestLogger_CloseDrainsQueueWithinReasonableTime(t *testing.T) {
	s := openTestStore(t)
	seq := audit.NewSeqCounter()
	logger := audit.NewLogger(s, seq, nil)

	for i := 0; i < 20; i++ {
		env, err := audit.Build(audit.BuildInput{
			RequestID: fmt.Sprintf("req-batch-%d", i),
			ToolName:  "retrieve",
			Result:    map[string]any{"i": i},
		})
		require.NoError(t, err)
		logger.Enqueue(env)
	}
	logger.Close()

	var count int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM audit_log`).Scan(&count))
	assert.Equal(t, 20, count)
}
