package dag

import (
	"context"
	"database/sql"
)

// Diff reports per-document differences between two trees, keyed by
// doc_id: present only in to (Added), present only in from (Removed),
// or present in both with a different doc_content_hash (Changed).
type Diff struct {
	Added   []string
	Removed []string
	Changed []string
}

// DiffTrees compares the entries of two resolved trees. Both trees
// must already exist (ErrTreeNotFound otherwise); entries are grouped
// by doc_id since diffing is defined at document granularity, not
// per-chunk.
func DiffTrees(ctx context.Context, tx *sql.Tx, fromTreeHash, toTreeHash string) (Diff, error) {
	fromDocs, err := docHashes(ctx, tx, fromTreeHash)
	if err != nil {
		return Diff{}, err
	}
	toDocs, err := docHashes(ctx, tx, toTreeHash)
	if err != nil {
		return Diff{}, err
	}

	var d Diff
	for docID, toHash := range toDocs {
		fromHash, ok := fromDocs[docID]
		if !ok {
			d.Added = append(d.Added, docID)
			continue
		}
		if fromHash != toHash {
			d.Changed = append(d.Changed, docID)
		}
	}
	for docID := range fromDocs {
		if _, ok := toDocs[docID]; !ok {
			d.Removed = append(d.Removed, docID)
		}
	}

	sortStrings(d.Added)
	sortStrings(d.Removed)
	sortStrings(d.Changed)
	return d, nil
}

func docHashes(ctx context.Context, tx *sql.Tx, treeHash string) (map[string]string, error) {
	entries, err := GetTreeEntries(ctx, tx, treeHash)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.DocID] = e.DocContentHash
	}
	return out, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
