package fts

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/docindex/internal/codec"
	"github.com/roach88/docindex/internal/dag"
)

const (
	kindFTS       = "fts"
	tokenizerName = "unicode61"
	rowidStrategy = "sha256-lower63"
	ftsSyncMode   = "go-guarded"
	maxRowidTries = 10
)

// BuildResult reports the outcome of a build_fts_tree call.
type BuildResult struct {
	ArtifactID string
	TreeHash   string
	CommitHash string
	ChunkCount int
	Skipped    bool
}

type chunkRow struct {
	ChunkID     string
	DocID       string
	SpanStart   int64
	SpanEnd     int64
	ContentHash string
	DocBytes    []byte
}

// BuildFTSTree implements the history-correct FTS tree builder (§4.4):
// resolve ref, check idempotency against a stored artifact, rebuild the
// per-tree inverted index behind the maintenance gate, and register the
// resulting artifact.
func BuildFTSTree(ctx context.Context, tx *sql.Tx, ref string, forceRebuild bool) (BuildResult, error) {
	commitHash, ok, err := dag.ResolveTarget(ctx, tx, ref)
	if err != nil {
		return BuildResult{}, fmt.Errorf("fts: resolve ref: %w", err)
	}
	if !ok {
		return BuildResult{}, ErrRefNotFound
	}
	commit, err := dag.GetCommit(ctx, tx, commitHash)
	if err != nil {
		return BuildResult{}, fmt.Errorf("fts: load commit: %w", err)
	}
	treeHash := commit.TreeHash

	frozen, err := treeIsFrozen(ctx, tx, treeHash)
	if err != nil {
		return BuildResult{}, err
	}
	if !frozen {
		return BuildResult{}, ErrNotFrozen
	}

	chunks, err := loadChunkRows(ctx, tx, treeHash)
	if err != nil {
		return BuildResult{}, err
	}

	wantPayloadHash, err := computePayloadHash(chunks)
	if err != nil {
		return BuildResult{}, err
	}

	existingArtifactID, existingPayloadHash, hasArtifact, err := findArtifact(ctx, tx, treeHash, kindFTS, "")
	if err != nil {
		return BuildResult{}, err
	}
	if hasArtifact {
		if existingPayloadHash == wantPayloadHash {
			materialized, err := loadFTSChunkHashes(ctx, tx, treeHash)
			if err != nil {
				return BuildResult{}, err
			}
			if !ftsChunksComplete(chunks, materialized) {
				return BuildResult{}, ErrArtifactDrift
			}
			if err := upsertArtifactRefs(ctx, tx, existingArtifactID, kindFTS, commitHash, ref); err != nil {
				return BuildResult{}, err
			}
			return BuildResult{
				ArtifactID: existingArtifactID,
				TreeHash:   treeHash,
				CommitHash: commitHash,
				ChunkCount: len(chunks),
				Skipped:    true,
			}, nil
		}
		return BuildResult{}, ErrArtifactDrift
	}

	dirty, err := ftsChunksNonEmpty(ctx, tx, treeHash)
	if err != nil {
		return BuildResult{}, err
	}
	if dirty && !forceRebuild {
		return BuildResult{}, ErrDirtyState
	}

	if err := openGate(ctx, tx); err != nil {
		return BuildResult{}, err
	}
	buildErr := buildBody(ctx, tx, treeHash, chunks, forceRebuild)
	if closeErr := closeGate(ctx, tx); buildErr == nil && closeErr != nil {
		return BuildResult{}, closeErr
	}
	if buildErr != nil {
		if !isNamedBuildError(buildErr) {
			buildErr = fmt.Errorf("%w: %v", ErrBuildFailed, buildErr)
		}
		return BuildResult{}, buildErr
	}

	artifactID, err := registerArtifact(ctx, tx, treeHash, commitHash, ref, chunks, wantPayloadHash)
	if err != nil {
		return BuildResult{}, err
	}

	return BuildResult{
		ArtifactID: artifactID,
		TreeHash:   treeHash,
		CommitHash: commitHash,
		ChunkCount: len(chunks),
	}, nil
}

// isNamedBuildError reports whether err is one of the already-classified
// fts sentinels raised from inside buildBody. Anything else (a raw SQL
// error surfacing from an insert or scan) is an unexpected build-step
// failure and gets wrapped in ErrBuildFailed instead of leaking as an
// unclassified error.
func isNamedBuildError(err error) bool {
	return errors.Is(err, ErrDataCorruption) ||
		errors.Is(err, ErrRowidCollision) ||
		errors.Is(err, ErrFTSIncomplete) ||
		errors.Is(err, ErrFTSExtraRows)
}

func buildBody(ctx context.Context, tx *sql.Tx, treeHash string, chunks []chunkRow, forceRebuild bool) error {
	if forceRebuild {
		if err := clearFTSChunks(ctx, tx, treeHash); err != nil {
			return err
		}
	}

	for _, c := range chunks {
		text, err := reconstructChunkText(c)
		if err != nil {
			return err
		}
		if codec.SHA256Hex([]byte(text)) != c.ContentHash {
			return ErrDataCorruption
		}
		if err := insertFTSChunk(ctx, tx, treeHash, c.ChunkID, text, c.ContentHash); err != nil {
			return err
		}
	}

	return checkCompleteness(ctx, tx, treeHash, chunks)
}

func reconstructChunkText(c chunkRow) (string, error) {
	normalized := norm.NFKC.String(string(c.DocBytes))
	if c.SpanStart < 0 || c.SpanEnd < c.SpanStart || c.SpanEnd > int64(len(normalized)) {
		return "", fmt.Errorf("%w: span [%d,%d) out of bounds for %d bytes",
			ErrDataCorruption, c.SpanStart, c.SpanEnd, len(normalized))
	}
	return normalized[c.SpanStart:c.SpanEnd], nil
}

func insertFTSChunk(ctx context.Context, tx *sql.Tx, treeHash, chunkID, text, contentHash string) error {
	for attempt := 0; attempt < maxRowidTries; attempt++ {
		rowid := lower63BitRowID(treeHash, chunkID, attempt)

		var existingTree, existingChunk string
		err := tx.QueryRowContext(ctx,
			`SELECT tree_hash, chunk_id FROM fts_chunks WHERE rowid = ?`, rowid,
		).Scan(&existingTree, &existingChunk)
		if err == nil {
			if existingTree == treeHash && existingChunk == chunkID {
				return nil // already present, same content
			}
			continue // occupied by a different (tree, chunk); retry
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("fts: check rowid: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO fts_chunks (rowid, tree_hash, chunk_id, text, content_hash)
			VALUES (?, ?, ?, ?, ?)
		`, rowid, treeHash, chunkID, text, contentHash)
		if err != nil {
			return fmt.Errorf("fts: insert fts_chunks: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("fts: insert fts_chunks: %w", err)
		}
		if affected == 0 {
			// UNIQUE(tree_hash, chunk_id) collided with identical content.
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fts_chunks_fts (rowid, text) VALUES (?, ?)`, rowid, text,
		); err != nil {
			return fmt.Errorf("fts: mirror fts_chunks_fts: %w", err)
		}
		return nil
	}
	return ErrRowidCollision
}

func lower63BitRowID(treeHash, chunkID string, attempt int) int64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", treeHash, chunkID, attempt)))
	v := binary.BigEndian.Uint64(sum[:8])
	return int64(v &^ (uint64(1) << 63))
}

func clearFTSChunks(ctx context.Context, tx *sql.Tx, treeHash string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT rowid, text FROM fts_chunks WHERE tree_hash = ?`, treeHash)
	if err != nil {
		return fmt.Errorf("fts: scan fts_chunks for clear: %w", err)
	}
	type old struct {
		rowid int64
		text  string
	}
	var olds []old
	for rows.Next() {
		var o old
		if err := rows.Scan(&o.rowid, &o.text); err != nil {
			rows.Close()
			return fmt.Errorf("fts: scan fts_chunks for clear: %w", err)
		}
		olds = append(olds, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("fts: scan fts_chunks for clear: %w", err)
	}

	for _, o := range olds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fts_chunks_fts (fts_chunks_fts, rowid, text) VALUES ('delete', ?, ?)`,
			o.rowid, o.text,
		); err != nil {
			return fmt.Errorf("fts: unmirror fts_chunks_fts: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM fts_chunks WHERE tree_hash = ?`, treeHash,
	); err != nil {
		return fmt.Errorf("fts: clear fts_chunks: %w", err)
	}
	return nil
}

func checkCompleteness(ctx context.Context, tx *sql.Tx, treeHash string, chunks []chunkRow) error {
	want := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		want[c.ChunkID] = true
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT chunk_id FROM fts_chunks WHERE tree_hash = ?`, treeHash)
	if err != nil {
		return fmt.Errorf("fts: completeness scan: %w", err)
	}
	defer rows.Close()

	got := make(map[string]bool, len(chunks))
	for rows.Next() {
		var chunkID string
		if err := rows.Scan(&chunkID); err != nil {
			return fmt.Errorf("fts: completeness scan: %w", err)
		}
		got[chunkID] = true
		if !want[chunkID] {
			return ErrFTSExtraRows
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("fts: completeness scan: %w", err)
	}

	for chunkID := range want {
		if !got[chunkID] {
			return ErrFTSIncomplete
		}
	}
	return nil
}

// loadFTSChunkHashes reads the materialized fts_chunks content_hash per
// chunk_id for treeHash, so an idempotent rebuild can be checked against
// what is actually on disk rather than trusting the stored artifact's
// payload_hash, which is derived from tree_chunks and so never moves
// when fts_chunks rows are lost out from under it.
func loadFTSChunkHashes(ctx context.Context, tx *sql.Tx, treeHash string) (map[string]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT chunk_id, content_hash FROM fts_chunks WHERE tree_hash = ?`, treeHash)
	if err != nil {
		return nil, fmt.Errorf("fts: load fts_chunks for drift check: %w", err)
	}
	defer rows.Close()

	got := make(map[string]string)
	for rows.Next() {
		var chunkID, contentHash string
		if err := rows.Scan(&chunkID, &contentHash); err != nil {
			return nil, fmt.Errorf("fts: scan fts_chunks for drift check: %w", err)
		}
		got[chunkID] = contentHash
	}
	return got, rows.Err()
}

// ftsChunksComplete reports whether materialized matches chunks exactly:
// same chunk_id set, same content_hash per chunk. A short count or a
// stale hash is a materialized index that has drifted from the tree it
// claims to represent.
func ftsChunksComplete(chunks []chunkRow, materialized map[string]string) bool {
	if len(materialized) != len(chunks) {
		return false
	}
	for _, c := range chunks {
		if materialized[c.ChunkID] != c.ContentHash {
			return false
		}
	}
	return true
}

func treeIsFrozen(ctx context.Context, tx *sql.Tx, treeHash string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tree_chunks WHERE tree_hash = ?`, treeHash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("fts: check frozen: %w", err)
	}
	return count > 0, nil
}

func ftsChunksNonEmpty(ctx context.Context, tx *sql.Tx, treeHash string) (bool, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM fts_chunks WHERE tree_hash = ?`, treeHash,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("fts: check dirty: %w", err)
	}
	return count > 0, nil
}

func loadChunkRows(ctx context.Context, tx *sql.Tx, treeHash string) ([]chunkRow, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT tc.chunk_id, tc.doc_id, tc.span_start, tc.span_end, tc.content_hash, b.bytes
		FROM tree_chunks tc
		JOIN tree_docs td ON td.tree_hash = tc.tree_hash AND td.doc_id = tc.doc_id
		JOIN blobs b ON b.content_hash = td.content_hash
		WHERE tc.tree_hash = ?
		ORDER BY tc.chunk_id ASC
	`, treeHash)
	if err != nil {
		return nil, fmt.Errorf("fts: load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []chunkRow
	for rows.Next() {
		var c chunkRow
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.SpanStart, &c.SpanEnd, &c.ContentHash, &c.DocBytes); err != nil {
			return nil, fmt.Errorf("fts: scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func computePayloadHash(chunks []chunkRow) (string, error) {
	arr := make(codec.Array, len(chunks))
	for i, c := range chunks {
		arr[i] = codec.Object{
			"chunk_id":     codec.S(c.ChunkID),
			"content_hash": codec.S(c.ContentHash),
		}
	}
	return codec.HashCanonical(arr)
}

func findArtifact(ctx context.Context, tx *sql.Tx, treeHash, kind, modelID string) (artifactID, payloadHash string, found bool, err error) {
	row := tx.QueryRowContext(ctx, `
		SELECT artifact_id, payload_hash FROM index_artifacts
		WHERE tree_hash = ? AND kind = ? AND COALESCE(model_id, '') = ?
	`, treeHash, kind, modelID)
	err = row.Scan(&artifactID, &payloadHash)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("fts: find artifact: %w", err)
	}
	return artifactID, payloadHash, true, nil
}

func registerArtifact(ctx context.Context, tx *sql.Tx, treeHash, commitHash, ref string, chunks []chunkRow, payloadHash string) (string, error) {
	manifest := codec.Object{
		"kind":           codec.S(kindFTS),
		"tokenizer":      codec.S(tokenizerName),
		"tree_hash":      codec.S(treeHash),
		"payload_hash":   codec.S(payloadHash),
		"chunk_count":    codec.I(int64(len(chunks))),
		"rowid_strategy": codec.S(rowidStrategy),
		"fts_sync":       codec.S(ftsSyncMode),
	}
	manifestJSON, err := codec.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("fts: marshal manifest: %w", err)
	}

	artifactID, err := codec.HashCanonical(codec.Object{
		"manifest":     manifest,
		"payload_hash": codec.S(payloadHash),
	})
	if err != nil {
		return "", fmt.Errorf("fts: hash artifact id: %w", err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(created_seq), 0) + 1 FROM index_artifacts`,
	).Scan(&seq); err != nil {
		return "", fmt.Errorf("fts: next seq: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO index_artifacts
			(artifact_id, tree_hash, kind, model_id, manifest_json, payload_hash, created_seq)
		VALUES (?, ?, ?, NULL, ?, ?, ?)
	`, artifactID, treeHash, kindFTS, string(manifestJSON), payloadHash, seq); err != nil {
		return "", fmt.Errorf("fts: insert artifact: %w", err)
	}

	if err := upsertArtifactRefs(ctx, tx, artifactID, kindFTS, commitHash, ref); err != nil {
		return "", err
	}
	return artifactID, nil
}

func upsertArtifactRefs(ctx context.Context, tx *sql.Tx, artifactID, kind, commitHash, ref string) error {
	if err := upsertArtifactRef(ctx, tx, "commit", commitHash, kind, artifactID); err != nil {
		return err
	}
	if ref == "HEAD" || ref == "main" {
		if err := upsertArtifactRef(ctx, tx, "ref", ref, kind, artifactID); err != nil {
			return err
		}
	}
	return nil
}

func upsertArtifactRef(ctx context.Context, tx *sql.Tx, refType, refName, kind, artifactID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO artifact_refs (ref_type, ref_name, kind, artifact_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(ref_type, ref_name, kind) DO UPDATE SET artifact_id = excluded.artifact_id
	`, refType, refName, kind, artifactID)
	if err != nil {
		return fmt.Errorf("fts: upsert artifact_refs: %w", err)
	}
	return nil
}
