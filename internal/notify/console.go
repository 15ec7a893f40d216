package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jpalmerr/mishpulse/internal/registry"
)

// Console prints each accepted status as a single line:
//
//	[Project <name> (<id>)] <RFC 3339 timestamp>: <message>
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a [Console] writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Notify implements [registry.Notifier].
func (c *Console) Notify(_ context.Context, project registry.Project, status registry.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.w, "[Project %s (%s)] %s: %s\n",
		project.Name,
		project.ID,
		status.Timestamp.Format(time.RFC3339Nano),
		status.Message,
	)
	return err
}
