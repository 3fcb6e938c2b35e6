package registry

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/roach88/docindex/internal/dag"
)

// Plan is the full reachability and deletion plan gc_artifacts computes.
// Dry-run callers get this without any mutation; commit-mode callers get
// the same plan after it has been applied.
type Plan struct {
	ReachableRefs    []string
	ReachableCommits []string
	ReachableTrees   []string
	DeletedArtifacts []string
	DeletedEmbeddingTreeHashes []string
}

// GC computes reachability from keepRefs (or, if empty, every row of
// refs) by walking commits.parents_json, then deletes every
// index_artifacts/chunk_embeddings row whose tree is unreachable —
// unless dryRun, in which case the plan is returned without mutation.
// kinds, if non-empty, restricts index_artifacts deletion to those
// kinds; chunk_embeddings deletion is always considered regardless of
// kinds (it has no kind column of its own).
func GC(ctx context.Context, tx *sql.Tx, keepRefs []string, kinds []string, dryRun bool) (Plan, error) {
	roots, refNames, err := resolveRoots(ctx, tx, keepRefs)
	if err != nil {
		return Plan{}, err
	}

	reachableCommits, err := reachableAncestors(ctx, tx, roots)
	if err != nil {
		return Plan{}, err
	}

	reachableTrees, err := treesOf(ctx, tx, reachableCommits)
	if err != nil {
		return Plan{}, err
	}

	artifactIDs, err := candidateArtifacts(ctx, tx, reachableTrees, kinds)
	if err != nil {
		return Plan{}, err
	}
	embeddingTreeHashes, err := candidateEmbeddingTrees(ctx, tx, reachableTrees)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		ReachableRefs:              refNames,
		ReachableCommits:           sortedKeys(reachableCommits),
		ReachableTrees:             sortedKeys(reachableTrees),
		DeletedArtifacts:           artifactIDs,
		DeletedEmbeddingTreeHashes: embeddingTreeHashes,
	}

	if dryRun {
		return plan, nil
	}

	if err := deleteArtifacts(ctx, tx, artifactIDs); err != nil {
		return Plan{}, err
	}
	if err := deleteEmbeddings(ctx, tx, embeddingTreeHashes); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func resolveRoots(ctx context.Context, tx *sql.Tx, keepRefs []string) ([]string, []string, error) {
	if len(keepRefs) > 0 {
		commits := make([]string, 0, len(keepRefs))
		names := make([]string, 0, len(keepRefs))
		for _, ref := range keepRefs {
			commitHash, ok, err := dag.ResolveTarget(ctx, tx, ref)
			if err != nil {
				return nil, nil, fmt.Errorf("registry: resolve %q: %w", ref, err)
			}
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s", dag.ErrRefNotFound, ref)
			}
			commits = append(commits, commitHash)
			names = append(names, ref)
		}
		return commits, names, nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT ref_name, commit_hash FROM refs ORDER BY ref_name ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("registry: load refs: %w", err)
	}
	defer rows.Close()

	var commits, names []string
	for rows.Next() {
		var name, commitHash string
		if err := rows.Scan(&name, &commitHash); err != nil {
			return nil, nil, fmt.Errorf("registry: scan ref: %w", err)
		}
		names = append(names, name)
		commits = append(commits, commitHash)
	}
	return commits, names, rows.Err()
}

// reachableAncestors walks commits.parents_json from roots, the same
// recursive-visitor shape as a dependency-graph DFS, collecting every
// commit hash reachable by following parent edges.
func reachableAncestors(ctx context.Context, tx *sql.Tx, roots []string) (map[string]bool, error) {
	visited := make(map[string]bool)

	var visit func(commitHash string) error
	visit = func(commitHash string) error {
		if visited[commitHash] {
			return nil
		}
		visited[commitHash] = true

		commit, err := dag.GetCommit(ctx, tx, commitHash)
		if err != nil {
			return fmt.Errorf("registry: load commit %s: %w", commitHash, err)
		}
		for _, parent := range commit.Parents {
			if err := visit(parent); err != nil {
				return err
			}
		}
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}
	return visited, nil
}

func treesOf(ctx context.Context, tx *sql.Tx, commits map[string]bool) (map[string]bool, error) {
	trees := make(map[string]bool, len(commits))
	for commitHash := range commits {
		commit, err := dag.GetCommit(ctx, tx, commitHash)
		if err != nil {
			return nil, fmt.Errorf("registry: load commit %s: %w", commitHash, err)
		}
		trees[commit.TreeHash] = true
	}
	return trees, nil
}

func candidateArtifacts(ctx context.Context, tx *sql.Tx, reachableTrees map[string]bool, kinds []string) ([]string, error) {
	query := `SELECT artifact_id, tree_hash, kind FROM index_artifacts ORDER BY artifact_id ASC`
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("registry: scan artifacts: %w", err)
	}
	defer rows.Close()

	kindFilter := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		kindFilter[k] = true
	}

	var ids []string
	for rows.Next() {
		var id, treeHash, kind string
		if err := rows.Scan(&id, &treeHash, &kind); err != nil {
			return nil, fmt.Errorf("registry: scan artifact: %w", err)
		}
		if reachableTrees[treeHash] {
			continue
		}
		if len(kindFilter) > 0 && !kindFilter[kind] {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func candidateEmbeddingTrees(ctx context.Context, tx *sql.Tx, reachableTrees map[string]bool) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT DISTINCT tree_hash FROM chunk_embeddings ORDER BY tree_hash ASC`)
	if err != nil {
		return nil, fmt.Errorf("registry: scan embedding trees: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var treeHash string
		if err := rows.Scan(&treeHash); err != nil {
			return nil, fmt.Errorf("registry: scan embedding tree: %w", err)
		}
		if !reachableTrees[treeHash] {
			hashes = append(hashes, treeHash)
		}
	}
	return hashes, rows.Err()
}

func deleteArtifacts(ctx context.Context, tx *sql.Tx, artifactIDs []string) error {
	for _, id := range artifactIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM artifact_refs WHERE artifact_id = ?`, id); err != nil {
			return fmt.Errorf("registry: delete artifact_refs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM index_artifacts WHERE artifact_id = ?`, id); err != nil {
			return fmt.Errorf("registry: delete index_artifacts: %w", err)
		}
	}
	return nil
}

func deleteEmbeddings(ctx context.Context, tx *sql.Tx, treeHashes []string) error {
	for _, treeHash := range treeHashes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunk_embeddings WHERE tree_hash = ?`, treeHash); err != nil {
			return fmt.Errorf("registry: delete chunk_embeddings: %w", err)
		}
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
