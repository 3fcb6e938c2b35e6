// Package scheduler persists task submissions: it resolves a
// deterministic next_run_at, normalizes the task shape, and assigns a
// UUIDv5 identity derived either from the normalized task body (dry
// run) or from a caller-supplied idempotency key (commit). No executor
// lives here — this package only guarantees that submitting the same
// task twice is safe.
package scheduler
