// Package embeddings builds and stores per-chunk embedding vectors as
// little-endian float32 blobs, registered as a versioned artifact tied
// to a frozen tree. Provider is the pluggable embedding backend: an
// HTTP client for OpenAI-compatible endpoints, or a deterministic local
// provider for offline use and tests.
package embeddings
