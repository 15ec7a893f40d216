package mishpulse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/mishpulse/internal/notify"
)

// mpConfig holds mutable state during MishPulse construction.
type mpConfig struct {
	port         int
	publicURL    string
	version      string
	logger       *slog.Logger
	rateLimit    float64
	rateBurst    int
	streamBuffer int
	clock        func() time.Time
	targets      []notify.Target
	closers      []func()
	webhooks     int
	callbacks    int
}

// Option is a function that configures a [MishPulse] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*mpConfig) error

// RedisPublisher is the subset of a go-redis client used to publish
// statuses. *redis.Client, *redis.ClusterClient and redis.UniversalClient
// all satisfy it.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// WithPort sets the HTTP server port.
//
// Defaults to 8080 if not specified.
//
// Example:
//
//	mp, err := mishpulse.New(
//	    mishpulse.WithPort(9090),
//	)
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *mpConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithPublicURL sets the externally reachable base URL used to build
// submission links, e.g. https://pulse.example.com. A trailing slash is
// removed.
//
// Defaults to http://localhost:<port>.
//
// Returns an error unless the URL is absolute with an http or https scheme.
func WithPublicURL(raw string) Option {
	return func(cfg *mpConfig) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid public URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("public URL must use http or https scheme, got %q", u.Scheme)
		}
		if u.Host == "" {
			return errors.New("public URL must have a host")
		}
		cfg.publicURL = strings.TrimRight(raw, "/")
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the MishPulse instance.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *mpConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithVersion sets the version reported by the health endpoints.
func WithVersion(version string) Option {
	return func(cfg *mpConfig) error {
		cfg.version = version
		return nil
	}
}

// WithRateLimit bounds inbound HTTP requests with a token bucket shared by
// all clients. An rps of zero disables rate limiting.
//
// Defaults to 100 requests per second with a burst of 200.
//
// Returns an error if rps is negative, or if burst is less than 1 while
// rate limiting is enabled.
func WithRateLimit(rps float64, burst int) Option {
	return func(cfg *mpConfig) error {
		if rps < 0 {
			return errors.New("rate limit must not be negative")
		}
		if rps > 0 && burst < 1 {
			return errors.New("rate limit burst must be positive")
		}
		cfg.rateLimit = rps
		cfg.rateBurst = burst
		return nil
	}
}

// WithStreamBuffer sets how many events each live-stream subscriber may
// have pending before further events are dropped for that subscriber.
//
// Defaults to 100.
//
// Returns an error if n is zero or negative.
func WithStreamBuffer(n int) Option {
	return func(cfg *mpConfig) error {
		if n <= 0 {
			return errors.New("stream buffer must be positive")
		}
		cfg.streamBuffer = n
		return nil
	}
}

// WithClock replaces the clock used for project creation times and
// defaulted status timestamps. Intended for tests.
//
// Returns an error if clock is nil.
func WithClock(clock func() time.Time) Option {
	return func(cfg *mpConfig) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		cfg.clock = clock
		return nil
	}
}

// WithNotifier registers a [Notifier] under a name used in logs and metrics.
//
// Notifiers run in registration order after each accepted status. A failing
// or panicking notifier does not stop the ones after it.
//
// Returns an error if the name is empty or the notifier is nil.
func WithNotifier(name string, n Notifier) Option {
	return func(cfg *mpConfig) error {
		if name == "" {
			return errors.New("notifier name is required")
		}
		if n == nil {
			return fmt.Errorf("notifier %q cannot be nil", name)
		}
		cfg.targets = append(cfg.targets, notify.Target{Name: name, Notifier: n})
		return nil
	}
}

// WithStatusCallback registers a function to be called for every accepted
// status.
//
// The callback receives the project (without its history) and the stored
// status. Multiple callbacks may be registered by calling WithStatusCallback
// multiple times; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They run on the submitting
// request's goroutine, so a slow callback delays the HTTP response.
//
// Panics within callbacks are recovered and logged.
//
// Example:
//
//	mp, err := mishpulse.New(
//	    mishpulse.WithStatusCallback(func(p mishpulse.Project, s mishpulse.Status) {
//	        if strings.HasPrefix(s.Message, "FAIL") {
//	            log.Printf("ALERT: %s reported %q", p.Name, s.Message)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithStatusCallback(cb func(Project, Status)) Option {
	return func(cfg *mpConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.callbacks++
		cfg.targets = append(cfg.targets, notify.Target{
			Name:     fmt.Sprintf("callback-%d", cfg.callbacks),
			Notifier: notify.Callback(cb),
		})
		return nil
	}
}

// WithConsole prints every accepted status to w, one line per status:
//
//	[Project <name> (<id>)] <timestamp>: <message>
//
// Returns an error if w is nil.
func WithConsole(w io.Writer) Option {
	return func(cfg *mpConfig) error {
		if w == nil {
			return errors.New("console writer cannot be nil")
		}
		cfg.targets = append(cfg.targets, notify.Target{Name: "console", Notifier: notify.NewConsole(w)})
		return nil
	}
}

// WithRedis publishes every accepted status as JSON on the Redis Pub/Sub
// channel <prefix><project id>. An empty prefix uses "mishpulse:statuses:"
// and a non-positive timeout uses 2 seconds per publish.
//
// The client is not closed by MishPulse.
//
// Returns an error if client is nil.
func WithRedis(client RedisPublisher, prefix string, timeout time.Duration) Option {
	return func(cfg *mpConfig) error {
		if client == nil {
			return errors.New("redis client cannot be nil")
		}
		cfg.targets = append(cfg.targets, notify.Target{
			Name:     "redis",
			Notifier: notify.NewRedis(client, prefix, timeout),
		})
		return nil
	}
}

// WithWebhook POSTs every accepted status as JSON to rawURL. A non-positive
// timeout uses 5 seconds. Idle connections are released by [MishPulse.Close].
//
// Returns an error unless the URL is absolute with an http or https scheme.
func WithWebhook(rawURL string, headers map[string]string, timeout time.Duration) Option {
	return func(cfg *mpConfig) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("invalid webhook URL: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("webhook URL must be an absolute http or https URL, got %q", rawURL)
		}

		hook := notify.NewWebhook(rawURL, headers, timeout)
		cfg.webhooks++
		cfg.targets = append(cfg.targets, notify.Target{
			Name:     fmt.Sprintf("webhook-%d", cfg.webhooks),
			Notifier: hook,
		})
		cfg.closers = append(cfg.closers, hook.Close)
		return nil
	}
}
