package registry

import (
	"context"
	"time"
)

// Status is a timestamped message appended to a project's history.
type Status struct {
	// Message is the producer-supplied text. The registry never inspects it.
	Message string `json:"message"`

	// Timestamp is the point in time the status represents.
	Timestamp time.Time `json:"timestamp"`
}

// Project is a registered producer.
//
// Values returned by the registry are copies of the project metadata. The
// history itself is read with [Registry.ListStatuses]; StatusCount reports
// its length at the time of the copy.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Token       string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	StatusCount int       `json:"status_count"`
}

// Notifier receives every accepted status after the registry lock is released.
//
// Implementations should treat delivery as best-effort. A returned error is
// logged by the registry and never reaches the caller of AppendStatus.
type Notifier interface {
	Notify(ctx context.Context, project Project, status Status) error
}

// NotifierFunc adapts an ordinary function to the [Notifier] interface.
type NotifierFunc func(ctx context.Context, project Project, status Status) error

// Notify calls f(ctx, project, status).
func (f NotifierFunc) Notify(ctx context.Context, project Project, status Status) error {
	return f(ctx, project, status)
}

// Clock returns the current time. Tests inject a controllable clock.
type Clock func() time.Time

// TokenSource produces candidate project tokens.
type TokenSource func() (string, error)
