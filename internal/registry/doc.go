// Package registry implements artifact garbage collection: computing
// which trees are still reachable from a set of ref roots, and deleting
// derived artifacts (FTS indexes, embeddings) whose tree is not.
package registry
