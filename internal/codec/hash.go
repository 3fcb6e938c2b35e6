package codec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashCanonical canonically marshals v and returns its SHA-256 hex
// digest. This is the single function every content-addressed identity
// in the system (tree_hash, commit_hash, artifact_id, payload_hash, ...)
// is built from: sha256_hex(canonical(x)).
func HashCanonical(v Value) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("codec: hash: %w", err)
	}
	return SHA256Hex(data), nil
}

// HashCanonicalAny converts v via FromAny before hashing.
func HashCanonicalAny(v any) (string, error) {
	val, err := FromAny(v)
	if err != nil {
		return "", fmt.Errorf("codec: hash: %w", err)
	}
	return HashCanonical(val)
}

// MustHashCanonical panics on error. Use only when the input shape is
// known-valid (e.g. constructed entirely from Int/String/Bool literals).
func MustHashCanonical(v Value) string {
	h, err := HashCanonical(v)
	if err != nil {
		panic(err)
	}
	return h
}
