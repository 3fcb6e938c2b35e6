package dag

import (
	"context"
	"database/sql"
	"fmt"
)

type treeDocRow struct {
	DocID       string
	ContentHash string
	Title       string
}

type treeChunkRow struct {
	ChunkID     string
	DocID       string
	SpanStart   int64
	SpanEnd     int64
	ContentHash string
}

// MaterializeTree checks out treeHash into the working documents, chunks,
// and chunks_fts tables, replacing whatever was there. It is the only
// writer of the working tables outside of document-authoring tools.
func MaterializeTree(ctx context.Context, tx *sql.Tx, treeHash string) error {
	entries, err := GetTreeEntries(ctx, tx, treeHash)
	if err != nil {
		return err
	}

	docs, err := loadTreeDocs(ctx, tx, treeHash)
	if err != nil {
		return err
	}
	if len(entries) > 0 && len(docs) == 0 {
		return ErrTreeDocsMissing
	}
	chunks, err := loadTreeChunks(ctx, tx, treeHash)
	if err != nil {
		return err
	}
	if len(entries) > 0 && len(chunks) == 0 {
		return ErrTreeChunksMissing
	}

	blobs := make(map[string][]byte, len(docs))
	for _, d := range docs {
		var bytes []byte
		err := tx.QueryRowContext(ctx,
			`SELECT bytes FROM blobs WHERE content_hash = ?`, d.ContentHash,
		).Scan(&bytes)
		if err == sql.ErrNoRows {
			return ErrBlobMissing
		}
		if err != nil {
			return fmt.Errorf("dag: load blob: %w", err)
		}
		blobs[d.ContentHash] = bytes
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("dag: clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return fmt.Errorf("dag: clear documents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts`); err != nil {
		return fmt.Errorf("dag: clear chunks_fts: %w", err)
	}

	for _, d := range docs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (doc_id, title, content_hash, updated_at)
			VALUES (?, ?, ?, ?)
		`, d.DocID, d.Title, d.ContentHash, epochTimestamp); err != nil {
			return fmt.Errorf("dag: reinsert document: %w", err)
		}
	}

	for _, c := range chunks {
		blob := blobs[docContentHash(docs, c.DocID)]
		text, err := sliceSpan(blob, c.SpanStart, c.SpanEnd)
		if err != nil {
			return fmt.Errorf("dag: slice chunk %s: %w", c.ChunkID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (chunk_id, doc_id, span_start, span_end, text, content_hash)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ChunkID, c.DocID, c.SpanStart, c.SpanEnd, text, c.ContentHash); err != nil {
			return fmt.Errorf("dag: reinsert chunk: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks_fts (chunk_id, text) VALUES (?, ?)
		`, c.ChunkID, text); err != nil {
			return fmt.Errorf("dag: rebuild chunks_fts: %w", err)
		}
	}

	return nil
}

func docContentHash(docs []treeDocRow, docID string) string {
	for _, d := range docs {
		if d.DocID == docID {
			return d.ContentHash
		}
	}
	return ""
}

func sliceSpan(blob []byte, start, end int64) (string, error) {
	if start < 0 || end < start || end > int64(len(blob)) {
		return "", fmt.Errorf("span [%d, %d) out of bounds for %d bytes", start, end, len(blob))
	}
	return string(blob[start:end]), nil
}

func loadTreeDocs(ctx context.Context, tx *sql.Tx, treeHash string) ([]treeDocRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT doc_id, content_hash, title FROM tree_docs
		WHERE tree_hash = ? ORDER BY doc_id ASC
	`, treeHash)
	if err != nil {
		return nil, fmt.Errorf("dag: load tree_docs: %w", err)
	}
	defer rows.Close()

	var docs []treeDocRow
	for rows.Next() {
		var d treeDocRow
		if err := rows.Scan(&d.DocID, &d.ContentHash, &d.Title); err != nil {
			return nil, fmt.Errorf("dag: scan tree_docs: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func loadTreeChunks(ctx context.Context, tx *sql.Tx, treeHash string) ([]treeChunkRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT chunk_id, doc_id, span_start, span_end, content_hash FROM tree_chunks
		WHERE tree_hash = ? ORDER BY doc_id ASC, chunk_id ASC
	`, treeHash)
	if err != nil {
		return nil, fmt.Errorf("dag: load tree_chunks: %w", err)
	}
	defer rows.Close()

	var chunks []treeChunkRow
	for rows.Next() {
		var c treeChunkRow
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.SpanStart, &c.SpanEnd, &c.ContentHash); err != nil {
			return nil, fmt.Errorf("dag: scan tree_chunks: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
