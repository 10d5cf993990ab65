// Package lifecycle implements the task status state machine and
// single-owner claim rules.
//
// Everything here is pure: no I/O, no clock reads, no dependencies on
// the runtime. The command engine consults these functions from claim
// and transition guards, and callers may use them directly for
// optimistic pre-checks; both paths therefore share identical
// semantics.
//
// Statuses and error codes are closed types. The compiler guarantees a
// value is one of the declared constants, which removes the "unknown
// status string" failure mode at runtime.
package lifecycle
