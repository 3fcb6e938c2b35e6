package dag

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/docindex/internal/codec"
)

// CreateTreeFromCurrentState builds a tree from the working documents and
// chunks tables, ordered (doc_id ASC, chunk_id ASC). The join order is
// part of tree_hash's identity: the same working state always produces
// the same entries in the same sequence, and therefore the same hash.
func CreateTreeFromCurrentState(ctx context.Context, tx *sql.Tx) (treeHash string, entries []Entry, err error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT d.doc_id, d.content_hash, d.title, c.chunk_id, c.content_hash,
		       c.span_start, c.span_end
		FROM documents d
		JOIN chunks c ON c.doc_id = d.doc_id
		ORDER BY d.doc_id ASC, c.chunk_id ASC
	`)
	if err != nil {
		return "", nil, fmt.Errorf("dag: scan working state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.DocID, &e.DocContentHash, &e.Title, &e.ChunkID,
			&e.ChunkContentHash, &e.SpanStart, &e.SpanEnd); err != nil {
			return "", nil, fmt.Errorf("dag: scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("dag: scan working state: %w", err)
	}

	hash, err := codec.HashCanonical(entriesToValue(entries))
	if err != nil {
		return "", nil, fmt.Errorf("dag: hash entries: %w", err)
	}
	return hash, entries, nil
}

// SaveTree idempotently persists a tree and its tree_docs/tree_chunks
// projections. Calling it twice with the same tree_hash is a no-op the
// second time.
func SaveTree(ctx context.Context, tx *sql.Tx, treeHash string, entries []Entry) error {
	entriesJSON, err := codec.Marshal(entriesToValue(entries))
	if err != nil {
		return fmt.Errorf("dag: marshal entries: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO trees (tree_hash, entries_json, row_count)
		VALUES (?, ?, ?)
	`, treeHash, string(entriesJSON), len(entries))
	if err != nil {
		return fmt.Errorf("dag: insert tree: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dag: insert tree: %w", err)
	}
	if affected == 0 {
		// tree already exists; projections were written the first time.
		return nil
	}

	seenDocs := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !seenDocs[e.DocID] {
			seenDocs[e.DocID] = true
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO tree_docs (tree_hash, doc_id, content_hash, title)
				VALUES (?, ?, ?, ?)
			`, treeHash, e.DocID, e.DocContentHash, e.Title); err != nil {
				return fmt.Errorf("dag: insert tree_docs: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO tree_chunks
				(tree_hash, chunk_id, doc_id, span_start, span_end, content_hash)
			VALUES (?, ?, ?, ?, ?, ?)
		`, treeHash, e.ChunkID, e.DocID, e.SpanStart, e.SpanEnd, e.ChunkContentHash); err != nil {
			return fmt.Errorf("dag: insert tree_chunks: %w", err)
		}
	}
	return nil
}

// GetTreeEntries returns the persisted entries for a tree, decoded from
// the stored canonical JSON. A malformed row is a storage-layer bug, not
// a caller error; it surfaces as ErrDataCorruption.
func GetTreeEntries(ctx context.Context, tx *sql.Tx, treeHash string) ([]Entry, error) {
	var entriesJSON string
	err := tx.QueryRowContext(ctx,
		`SELECT entries_json FROM trees WHERE tree_hash = ?`, treeHash,
	).Scan(&entriesJSON)
	if err == sql.ErrNoRows {
		return nil, ErrTreeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("dag: load tree: %w", err)
	}

	val, err := codec.ParseStrict([]byte(entriesJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataCorruption, err)
	}
	entries, err := entriesFromValue(val)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataCorruption, err)
	}
	return entries, nil
}
