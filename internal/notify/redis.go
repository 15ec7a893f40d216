package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/mishpulse/internal/registry"
)

const (
	// DefaultChannelPrefix prefixes the per-project channel: mishpulse:statuses:{project_id}
	DefaultChannelPrefix = "mishpulse:statuses:"

	defaultRedisTimeout = 2 * time.Second
)

// Publisher is the subset of the go-redis client used by [Redis].
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Redis publishes each accepted status as a JSON [Event] on a Redis Pub/Sub
// channel named after the project id. Channels are keyed by id rather than
// token so subscribers never learn the submission secret.
type Redis struct {
	client  Publisher
	prefix  string
	timeout time.Duration
}

// NewRedis creates a [Redis] notifier. An empty prefix uses
// [DefaultChannelPrefix]; a non-positive timeout uses 2s.
func NewRedis(client Publisher, prefix string, timeout time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	return &Redis{client: client, prefix: prefix, timeout: timeout}
}

// Channel returns the channel name used for a project.
func (r *Redis) Channel(projectID string) string {
	return r.prefix + projectID
}

// Notify implements [registry.Notifier].
func (r *Redis) Notify(ctx context.Context, project registry.Project, status registry.Status) error {
	data, err := json.Marshal(NewEvent(project, status))
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.client.Publish(ctx, r.Channel(project.ID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish status event: %w", err)
	}
	return nil
}
