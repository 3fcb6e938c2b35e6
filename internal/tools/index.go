package tools

import (
	"context"
	"database/sql"

	"github.com/roach88/docindex/internal/dag"
	"github.com/roach88/docindex/internal/store"
)

// CommitIndexInput freezes the current working tree into a commit.
// RefName is optional; when set ("HEAD", "main", or any ref name) it
// is updated to point at the new commit.
type CommitIndexInput struct {
	Message string
	Parents []string
	RefName string
}

// CommitIndexValue is the successful result of CommitIndex.
type CommitIndexValue struct {
	TreeHash   string `json:"tree_hash"`
	CommitHash string `json:"commit_hash"`
}

// CommitIndex hashes the working tree, saves it, creates a commit
// over it, and optionally advances RefName to the new commit.
func CommitIndex(ctx context.Context, s *store.Store, in CommitIndexInput) Result {
	var value CommitIndexValue
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		treeHash, entries, err := dag.CreateTreeFromCurrentState(ctx, tx)
		if err != nil {
			return err
		}
		if err := dag.SaveTree(ctx, tx, treeHash, entries); err != nil {
			return err
		}
		commitHash, err := dag.CreateCommit(ctx, tx, treeHash, in.Parents, in.Message)
		if err != nil {
			return err
		}
		if in.RefName != "" {
			currentHash, err := dag.GetRef(ctx, tx, in.RefName)
			if err != nil && err != dag.ErrRefNotFound {
				return err
			}
			refExists := err == nil
			if refExists && currentHash != commitHash && !containsHash(in.Parents, currentHash) {
				return dag.ErrRefMismatch
			}
			if err := dag.UpdateRef(ctx, tx, in.RefName, commitHash); err != nil {
				return err
			}
		}
		value = CommitIndexValue{TreeHash: treeHash, CommitHash: commitHash}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return ok(value, nil)
}

// containsHash reports whether hash appears in parents. Used to guard
// against a commit silently orphaning a ref's current history: when
// the ref already exists, the new commit must either reuse the ref's
// current commit verbatim (idempotent re-commit) or declare it as a
// parent.
func containsHash(parents []string, hash string) bool {
	for _, p := range parents {
		if p == hash {
			return true
		}
	}
	return false
}

// CheckoutIndexInput resolves Target (a ref name or a 64-char hex
// hash) to a commit and materializes its tree into the working
// tables.
type CheckoutIndexInput struct {
	Target string
}

// CheckoutIndexValue is the successful result of CheckoutIndex.
type CheckoutIndexValue struct {
	CommitHash string `json:"commit_hash"`
	TreeHash   string `json:"tree_hash"`
}

func CheckoutIndex(ctx context.Context, s *store.Store, in CheckoutIndexInput) Result {
	var value CheckoutIndexValue
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		commitHash, ok, err := dag.ResolveTarget(ctx, tx, in.Target)
		if err != nil {
			return err
		}
		if !ok {
			return dag.ErrRefNotFound
		}
		commit, err := dag.GetCommit(ctx, tx, commitHash)
		if err != nil {
			return err
		}
		if err := dag.MaterializeTree(ctx, tx, commit.TreeHash); err != nil {
			return err
		}
		value = CheckoutIndexValue{CommitHash: commitHash, TreeHash: commit.TreeHash}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return ok(value, nil)
}

// DiffIndexInput names two targets (ref names or commit hashes) to
// diff at document granularity.
type DiffIndexInput struct {
	From string
	To   string
}

// DiffIndexValue is the successful result of DiffIndex.
type DiffIndexValue struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	Changed []string `json:"changed"`
}

func DiffIndex(ctx context.Context, s *store.Store, in DiffIndexInput) Result {
	var value DiffIndexValue
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		fromTree, err := resolveToTree(ctx, tx, in.From)
		if err != nil {
			return err
		}
		toTree, err := resolveToTree(ctx, tx, in.To)
		if err != nil {
			return err
		}
		d, err := dag.DiffTrees(ctx, tx, fromTree, toTree)
		if err != nil {
			return err
		}
		value = DiffIndexValue{Added: orEmpty(d.Added), Removed: orEmpty(d.Removed), Changed: orEmpty(d.Changed)}
		return nil
	})
	if err != nil {
		return fail(err)
	}
	return ok(value, nil)
}

func resolveToTree(ctx context.Context, tx *sql.Tx, target string) (string, error) {
	commitHash, found, err := dag.ResolveTarget(ctx, tx, target)
	if err != nil {
		return "", err
	}
	if !found {
		return "", dag.ErrRefNotFound
	}
	commit, err := dag.GetCommit(ctx, tx, commitHash)
	if err != nil {
		return "", err
	}
	return commit.TreeHash, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
