// Package config resolves the server's non-secret defaults: retrieval
// alpha, embedding batch size, retrieval k and its BM25/vector caps.
// Precedence is env var > optional CUE file > code default. An
// absent CUE file is not an error — it simply means code defaults
// stand unless an env var overrides them.
package config
