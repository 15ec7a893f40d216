// Package registry holds the in-memory project and status registry for MishPulse.
//
// The registry owns every registered [Project] and its ordered history of
// [Status] entries. It is the only component with ordering or concurrency
// invariants:
//
//   - Tokens are unique for the lifetime of the process.
//   - A project's statuses are strictly increasing by timestamp.
//   - Appended statuses are never mutated or removed.
//
// All operations share one lock. The critical sections are constant time and
// never perform I/O; the configured [Notifier] runs after the lock has been
// released, so slow or failing delivery never blocks other callers.
//
// Errors carry a [Code] that the HTTP layer maps to a response status. Use
// [CodeOf] or [errors.Is] with the sentinel errors ([ErrNotFound],
// [ErrFailedPrecondition], [ErrInvalidArgument], [ErrInternal]).
//
// State is lost on shutdown; persistence is out of scope.
package registry
