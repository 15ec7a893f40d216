package registry

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxTokenAttempts bounds token generation retries on collision.
const maxTokenAttempts = 5

// entry is the registry's private record for one project.
type entry struct {
	project  Project
	statuses []Status
}

// snapshot returns a copy of the project metadata.
func (e *entry) snapshot() Project {
	p := e.project
	p.StatusCount = len(e.statuses)
	return p
}

// Registry is the in-memory store of projects keyed by token.
//
// Registry is safe for concurrent use. Mutations and lookups are serialized by
// a single RWMutex guarding the whole map; readers share the read lock. The
// check of the last timestamp and the append of a new status happen inside one
// write-lock acquisition, so concurrent appends on a token cannot interleave.
type Registry struct {
	mu       sync.RWMutex
	projects map[string]*entry

	clock    Clock
	tokens   TokenSource
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a [Registry] during construction.
type Option func(*Registry)

// WithClock sets the clock used for creation times and defaulted status
// timestamps. Defaults to time.Now.
func WithClock(clock Clock) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithTokenSource replaces the token generator. Defaults to [RandomToken].
func WithTokenSource(src TokenSource) Option {
	return func(r *Registry) {
		if src != nil {
			r.tokens = src
		}
	}
}

// WithNotifier sets the notifier invoked after every accepted status.
func WithNotifier(n Notifier) Option {
	return func(r *Registry) {
		r.notifier = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates an empty [Registry].
func New(opts ...Option) *Registry {
	r := &Registry{
		projects: make(map[string]*entry),
		clock:    time.Now,
		tokens:   RandomToken,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// now samples the registry clock in UTC, dropping any monotonic reading so
// stored timestamps compare by wall time only.
func (r *Registry) now() time.Time {
	return r.clock().UTC()
}

// CreateProject registers a new project under a freshly generated token.
//
// The name is trimmed; an empty name fails with [CodeInvalidArgument]. If the
// token source keeps producing tokens that are already registered, or fails,
// CreateProject gives up with [CodeInternal].
func (r *Registry) CreateProject(name string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, newError(CodeInvalidArgument, "project name is required", nil)
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := r.tokens()
		if err != nil {
			return Project{}, &Error{Code: CodeInternal, Message: "failed to generate token", Cause: err}
		}
		if token == "" {
			continue
		}

		r.mu.Lock()
		if _, exists := r.projects[token]; exists {
			r.mu.Unlock()
			r.logger.Warn("token collision, retrying", "attempt", attempt)
			continue
		}
		e := &entry{project: Project{
			ID:        uuid.New().String(),
			Name:      name,
			Token:     token,
			CreatedAt: r.now(),
		}}
		r.projects[token] = e
		project := e.snapshot()
		r.mu.Unlock()

		r.logger.Info("project created", "project_id", project.ID, "name", project.Name)
		return project, nil
	}

	return Project{}, newError(CodeInternal, "exhausted token generation attempts",
		map[string]any{"attempts": maxTokenAttempts})
}

// AppendStatus appends a status to the project identified by token.
//
// When timestamp is nil the registry clock is sampled after the lock is held.
// A caller-supplied timestamp must be strictly later than the project's last
// status or the call fails with [CodeFailedPrecondition] and nothing changes.
// A defaulted timestamp that does not advance the history (same clock tick or
// a clock step backwards) is moved to one nanosecond after the last status.
//
// The notifier runs after the lock is released. Its failures are logged and
// do not affect the result.
func (r *Registry) AppendStatus(ctx context.Context, token, message string, timestamp *time.Time) (Status, error) {
	r.mu.Lock()
	e, ok := r.projects[token]
	if !ok {
		r.mu.Unlock()
		r.logger.Warn("status submitted for unknown project")
		return Status{}, errProjectNotFound()
	}

	var at time.Time
	if timestamp != nil {
		at = *timestamp
	} else {
		at = r.now()
	}

	if n := len(e.statuses); n > 0 {
		last := e.statuses[n-1].Timestamp
		if !at.After(last) {
			if timestamp != nil {
				r.mu.Unlock()
				r.logger.Error("status timestamp does not increase",
					"project_id", e.project.ID,
					"timestamp", at,
					"last_timestamp", last,
				)
				return Status{}, newError(CodeFailedPrecondition, "timestamp must increase",
					map[string]any{"timestamp": at, "last_timestamp": last})
			}
			at = last.Add(time.Nanosecond)
		}
	}

	status := Status{Message: message, Timestamp: at}
	e.statuses = append(e.statuses, status)
	project := e.snapshot()
	r.mu.Unlock()

	r.logger.Info("status appended", "project_id", project.ID, "count", project.StatusCount)
	r.notify(ctx, project, status)
	return status, nil
}

// ListStatuses returns a copy of the project's status history in order.
func (r *Registry) ListStatuses(token string) ([]Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.projects[token]
	if !ok {
		return nil, errProjectNotFound()
	}

	statuses := make([]Status, len(e.statuses))
	copy(statuses, e.statuses)
	return statuses, nil
}

// Project returns the metadata of the project identified by token. The
// returned value carries the history length in StatusCount.
func (r *Registry) Project(token string) (Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.projects[token]
	if !ok {
		return Project{}, errProjectNotFound()
	}
	return e.snapshot(), nil
}

// Len returns the number of registered projects.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}

// notify invokes the notifier with panic recovery. Errors and panics are
// logged and never propagate.
func (r *Registry) notify(ctx context.Context, project Project, status Status) {
	if r.notifier == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("status notifier panicked",
				"panic", rec,
				"project_id", project.ID,
			)
		}
	}()

	if err := r.notifier.Notify(ctx, project, status); err != nil {
		r.logger.Warn("status notification failed",
			"project_id", project.ID,
			"error", err,
		)
	}
}
