package dag

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

var hexHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// UpdateRef upserts a named ref to point at commitHash.
func UpdateRef(ctx context.Context, tx *sql.Tx, name, commitHash string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO refs (ref_name, commit_hash) VALUES (?, ?)
		ON CONFLICT(ref_name) DO UPDATE SET commit_hash = excluded.commit_hash
	`, name, commitHash)
	if err != nil {
		return fmt.Errorf("dag: update ref: %w", err)
	}
	return nil
}

// GetRef returns the commit hash a ref points at.
func GetRef(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	var commitHash string
	err := tx.QueryRowContext(ctx,
		`SELECT commit_hash FROM refs WHERE ref_name = ?`, name,
	).Scan(&commitHash)
	if err == sql.ErrNoRows {
		return "", ErrRefNotFound
	}
	if err != nil {
		return "", fmt.Errorf("dag: load ref: %w", err)
	}
	return commitHash, nil
}

// ResolveTarget resolves s to a commit hash: a known ref name, a literal
// 64-hex-char commit hash, or ("", false) if neither.
func ResolveTarget(ctx context.Context, tx *sql.Tx, s string) (string, bool, error) {
	commitHash, err := GetRef(ctx, tx, s)
	if err == nil {
		return commitHash, true, nil
	}
	if err != ErrRefNotFound {
		return "", false, err
	}

	if hexHashPattern.MatchString(s) {
		return s, true, nil
	}
	return "", false, nil
}
