// Package dag implements the content-addressed versioning layer: blobs,
// trees, commits, and refs, plus ref resolution and tree materialization
// (checkout). Identity for every immutable entity is
// sha256_hex(canonical(shape)); see internal/codec.
package dag
