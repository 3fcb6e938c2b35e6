package dag

import (
	"fmt"

	"github.com/roach88/docindex/internal/codec"
)

// Entry is one row of a tree: a chunk of a document as it existed at
// the moment the tree was built. Entries are ordered (doc_id ASC,
// chunk_id ASC) and that order is part of tree_hash's identity.
type Entry struct {
	DocID            string
	DocContentHash   string
	Title            string
	ChunkID          string
	ChunkContentHash string
	SpanStart        int64
	SpanEnd          int64
}

func (e Entry) toValue() codec.Object {
	return codec.Object{
		"doc_id":             codec.S(e.DocID),
		"doc_content_hash":   codec.S(e.DocContentHash),
		"title":              codec.S(e.Title),
		"chunk_id":           codec.S(e.ChunkID),
		"chunk_content_hash": codec.S(e.ChunkContentHash),
		"span_start":         codec.I(e.SpanStart),
		"span_end":           codec.I(e.SpanEnd),
	}
}

func entryFromValue(v codec.Value) (Entry, error) {
	obj, ok := v.(codec.Object)
	if !ok {
		return Entry{}, fmt.Errorf("dag: entry is not an object")
	}
	str := func(key string) (string, error) {
		s, ok := obj[key].(codec.String)
		if !ok {
			return "", fmt.Errorf("dag: entry missing string field %q", key)
		}
		return string(s), nil
	}
	num := func(key string) (int64, error) {
		n, ok := obj[key].(codec.Int)
		if !ok {
			return 0, fmt.Errorf("dag: entry missing int field %q", key)
		}
		return int64(n), nil
	}

	var e Entry
	var err error
	if e.DocID, err = str("doc_id"); err != nil {
		return Entry{}, err
	}
	if e.DocContentHash, err = str("doc_content_hash"); err != nil {
		return Entry{}, err
	}
	if e.Title, err = str("title"); err != nil {
		return Entry{}, err
	}
	if e.ChunkID, err = str("chunk_id"); err != nil {
		return Entry{}, err
	}
	if e.ChunkContentHash, err = str("chunk_content_hash"); err != nil {
		return Entry{}, err
	}
	if e.SpanStart, err = num("span_start"); err != nil {
		return Entry{}, err
	}
	if e.SpanEnd, err = num("span_end"); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func entriesToValue(entries []Entry) codec.Array {
	arr := make(codec.Array, len(entries))
	for i, e := range entries {
		arr[i] = e.toValue()
	}
	return arr
}

func entriesFromValue(v codec.Value) ([]Entry, error) {
	arr, ok := v.(codec.Array)
	if !ok {
		return nil, fmt.Errorf("dag: entries is not an array")
	}
	entries := make([]Entry, len(arr))
	for i, elem := range arr {
		e, err := entryFromValue(elem)
		if err != nil {
			return nil, fmt.Errorf("dag: entry %d: %w", i, err)
		}
		entries[i] = e
	}
	return entries, nil
}

// Commit mirrors the commits table.
type Commit struct {
	CommitHash string
	TreeHash   string
	Parents    []string
	Message    string
	CreatedAt  string
}

// epochTimestamp is the fixed created_at value every commit and
// materialized document is stamped with. docindex derives no identifier
// from wall-clock time (§5); created_seq, not created_at, orders events.
const epochTimestamp = "1970-01-01T00:00:00.000Z"
