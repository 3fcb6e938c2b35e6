// Package tools exposes one function per operation in the system's
// tool surface: input validation, a single store transaction, and a
// typed Result that internal/audit wraps into an envelope. Error
// codes are a closed set of stable strings (Code), generalized from
// the teacher's RuntimeErrorCode pattern to the full taxonomy below.
package tools
