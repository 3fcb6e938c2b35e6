// Package audit builds the envelope every tool call returns and
// appends a best-effort record of it to audit_log. Envelope
// construction is synchronous and pure (it never touches the
// database); the append is deliberately decoupled from it so that a
// slow or failing audit write can never cause a result to be lost.
package audit
