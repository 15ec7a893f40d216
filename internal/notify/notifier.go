package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jpalmerr/mishpulse/internal/registry"
)

var (
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mishpulse_notify_deliveries_total",
			Help: "Total number of status deliveries attempted per notifier",
		},
		[]string{"notifier", "result"},
	)

	deliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mishpulse_notify_delivery_duration_seconds",
			Help:    "Status delivery latency in seconds per notifier",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"notifier"},
	)
)

// Event is the wire representation of an accepted status, shared by the
// Redis, webhook and SSE sinks.
type Event struct {
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEvent builds an [Event] from a project and one of its statuses.
func NewEvent(project registry.Project, status registry.Status) Event {
	return Event{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Message:     status.Message,
		Timestamp:   status.Timestamp,
	}
}

// Target is a named notifier inside a [Multi].
type Target struct {
	Name     string
	Notifier registry.Notifier
}

// Multi delivers each status to every target in order.
//
// A failing or panicking target does not stop delivery to the others. All
// failures are joined into the returned error.
type Multi struct {
	targets []Target
}

// NewMulti creates a [Multi] over the given targets. Targets with a nil
// notifier are skipped.
func NewMulti(targets ...Target) *Multi {
	m := &Multi{}
	for _, t := range targets {
		if t.Notifier != nil {
			m.targets = append(m.targets, t)
		}
	}
	return m
}

// Len returns the number of targets.
func (m *Multi) Len() int {
	return len(m.targets)
}

// Notify implements [registry.Notifier].
func (m *Multi) Notify(ctx context.Context, project registry.Project, status registry.Status) error {
	var errs []error
	for _, t := range m.targets {
		start := time.Now()
		err := deliverSafe(ctx, t.Notifier, project, status)
		deliveryDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())

		if err != nil {
			deliveriesTotal.WithLabelValues(t.Name, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			continue
		}
		deliveriesTotal.WithLabelValues(t.Name, "ok").Inc()
	}
	return errors.Join(errs...)
}

// deliverSafe calls a notifier and converts a panic into an error.
func deliverSafe(ctx context.Context, n registry.Notifier, project registry.Project, status registry.Status) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
	}()
	return n.Notify(ctx, project, status)
}

// Callback adapts a function that cannot fail to [registry.Notifier].
func Callback(fn func(project registry.Project, status registry.Status)) registry.Notifier {
	return registry.NotifierFunc(func(_ context.Context, project registry.Project, status registry.Status) error {
		fn(project, status)
		return nil
	})
}
