package dag

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/docindex/internal/codec"
)

// CreateCommit computes a commit's identity from its tree and parents
// only — never from message or wall-clock time — and inserts it
// idempotently. The same tree plus the same parent list always yields
// the same commit_hash, regardless of message.
func CreateCommit(ctx context.Context, tx *sql.Tx, treeHash string, parents []string, message string) (string, error) {
	if treeHash == "" {
		return "", ErrTreeHashMissing
	}

	identity := codec.Object{
		"tree_hash": codec.S(treeHash),
		"parents":   parentsToValue(parents),
	}
	commitHash, err := codec.HashCanonical(identity)
	if err != nil {
		return "", fmt.Errorf("dag: hash commit identity: %w", err)
	}

	parentsJSON, err := codec.Marshal(parentsToValue(parents))
	if err != nil {
		return "", fmt.Errorf("dag: marshal parents: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO commits (commit_hash, tree_hash, parents_json, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, commitHash, treeHash, string(parentsJSON), message, epochTimestamp); err != nil {
		return "", fmt.Errorf("dag: insert commit: %w", err)
	}
	return commitHash, nil
}

// parentsToValue preserves caller order: parent order is semantically
// meaningful (the first parent is the primary lineage for a merge), so
// two commits with the same parent set in a different order are
// distinct commits.
func parentsToValue(parents []string) codec.Array {
	arr := make(codec.Array, len(parents))
	for i, p := range parents {
		arr[i] = codec.S(p)
	}
	return arr
}

// GetCommit loads a commit by hash.
func GetCommit(ctx context.Context, tx *sql.Tx, commitHash string) (Commit, error) {
	var c Commit
	var parentsJSON string
	err := tx.QueryRowContext(ctx, `
		SELECT commit_hash, tree_hash, parents_json, message, created_at
		FROM commits WHERE commit_hash = ?
	`, commitHash).Scan(&c.CommitHash, &c.TreeHash, &parentsJSON, &c.Message, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return Commit{}, ErrCommitNotFound
	}
	if err != nil {
		return Commit{}, fmt.Errorf("dag: load commit: %w", err)
	}

	val, err := codec.ParseStrict([]byte(parentsJSON))
	if err != nil {
		return Commit{}, fmt.Errorf("%w: %v", ErrDataCorruption, err)
	}
	arr, ok := val.(codec.Array)
	if !ok {
		return Commit{}, fmt.Errorf("%w: parents_json is not an array", ErrDataCorruption)
	}
	for _, elem := range arr {
		s, ok := elem.(codec.String)
		if !ok {
			return Commit{}, fmt.Errorf("%w: parent is not a string", ErrDataCorruption)
		}
		c.Parents = append(c.Parents, string(s))
	}
	return c, nil
}
