package mishpulse

import "github.com/jpalmerr/mishpulse/internal/registry"

// Project is a registered status producer.
//
// The Token field is the submission secret embedded in the project's link.
// It is never serialized to JSON.
type Project = registry.Project

// Status is one timestamped message in a project's history.
type Status = registry.Status

// Notifier receives every accepted status after it has been stored.
//
// Notifiers run on the submitting goroutine once the registry lock has been
// released. Errors and panics are logged and never reach the submitter, so
// implementations should return quickly and dispatch slow work elsewhere.
type Notifier = registry.Notifier

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc = registry.NotifierFunc

// Errors returned by [MishPulse.AppendStatus], [MishPulse.ListStatuses] and
// [MishPulse.CreateProject]. Match with errors.Is.
var (
	// ErrNotFound is returned for an unknown token.
	ErrNotFound = registry.ErrNotFound

	// ErrFailedPrecondition is returned when a supplied timestamp does not
	// advance the project's history.
	ErrFailedPrecondition = registry.ErrFailedPrecondition

	// ErrInvalidArgument is returned for an empty project name.
	ErrInvalidArgument = registry.ErrInvalidArgument

	// ErrInternal is returned when no unique token could be generated.
	ErrInternal = registry.ErrInternal
)
