package mishpulse

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/mishpulse/internal/notify"
	"github.com/jpalmerr/mishpulse/internal/registry"
	"github.com/jpalmerr/mishpulse/internal/server"
)

const (
	defaultPort           = 8080
	defaultRateLimit      = 100
	defaultRateLimitBurst = 200
	defaultVersion        = "dev"
)

// MishPulse is the main orchestrator for project registration, status
// collection and the HTTP API.
//
// MishPulse owns one in-memory registry, fans accepted statuses out to the
// configured notifiers and serves the HTTP API. It is created using [New]
// with functional options and started with [MishPulse.Start].
//
// The typical lifecycle is:
//
//	mp, err := mishpulse.New(mishpulse.WithPort(8080))
//	if err != nil {
//	    slog.Error("failed to create mishpulse", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	mp.Start(ctx) // blocks until context cancelled
//
// The registry methods ([MishPulse.CreateProject], [MishPulse.AppendStatus],
// [MishPulse.ListStatuses]) may be called directly, with or without the
// HTTP server running. All methods are safe for concurrent use.
type MishPulse struct {
	port      int
	publicURL string
	logger    *slog.Logger
	registry  *registry.Registry
	hub       *notify.Hub
	notifiers *notify.Multi
	server    *server.Server
	closers   []func()
}

// New creates a new [MishPulse] instance with the given options.
//
// All options have sensible defaults:
//   - Port: 8080
//   - Public URL: http://localhost:<port>
//   - Rate limit: 100 requests per second, burst 200
//   - Stream buffer: 100 events per subscriber
//
// Returns an error if any option is invalid.
//
// Example:
//
//	mp, err := mishpulse.New(
//	    mishpulse.WithPort(9090),
//	    mishpulse.WithPublicURL("https://pulse.example.com"),
//	    mishpulse.WithConsole(os.Stdout),
//	)
func New(opts ...Option) (*MishPulse, error) {
	cfg := &mpConfig{
		port:         defaultPort,
		rateLimit:    defaultRateLimit,
		rateBurst:    defaultRateLimitBurst,
		streamBuffer: notify.DefaultStreamBuffer,
		version:      defaultVersion,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	publicURL := cfg.publicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("http://localhost:%d", cfg.port)
	}

	// the live stream is always the first target so SSE clients see a status
	// before slower side channels run
	hub := notify.NewHub(cfg.streamBuffer)
	targets := append([]notify.Target{{Name: "stream", Notifier: hub}}, cfg.targets...)
	multi := notify.NewMulti(targets...)

	regOpts := []registry.Option{
		registry.WithNotifier(multi),
		registry.WithLogger(logger),
	}
	if cfg.clock != nil {
		regOpts = append(regOpts, registry.WithClock(cfg.clock))
	}
	reg := registry.New(regOpts...)

	srv := server.NewServer(reg, hub, server.Config{
		Port:      cfg.port,
		PublicURL: publicURL,
		Version:   cfg.version,
		RateLimit: cfg.rateLimit,
		RateBurst: cfg.rateBurst,
	}, logger)

	return &MishPulse{
		port:      cfg.port,
		publicURL: publicURL,
		logger:    logger,
		registry:  reg,
		hub:       hub,
		notifiers: multi,
		server:    srv,
		closers:   cfg.closers,
	}, nil
}

// Start serves the HTTP API.
//
// Start is a blocking call that runs until the provided context is cancelled.
// The HTTP server listens on the configured port; open status streams are
// closed and in-flight requests are drained (up to 5 seconds) on shutdown.
//
// The caller controls the lifecycle via context cancellation. For signal handling,
// use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	mp.Start(ctx)
//
// Returns nil on graceful shutdown. Returns an error if the HTTP server fails to start.
func (mp *MishPulse) Start(ctx context.Context) error {
	mp.logger.Info("mishpulse starting", "notifiers", mp.notifiers.Len())
	mp.logger.Info("api available", "url", mp.publicURL, "port", mp.port)

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	if err := mp.server.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	mp.logger.Info("mishpulse stopped", "projects", mp.registry.Len())
	return nil
}

// Close releases resources held by notifiers, such as idle webhook
// connections. It is safe to call more than once.
func (mp *MishPulse) Close() {
	for _, c := range mp.closers {
		c()
	}
}

// Handler returns the HTTP API handler, for mounting into an existing server
// instead of calling [MishPulse.Start].
func (mp *MishPulse) Handler() http.Handler {
	return mp.server.Handler()
}

// CreateProject registers a project and returns it. The returned Token is
// the submission secret; see [MishPulse.Link].
func (mp *MishPulse) CreateProject(name string) (Project, error) {
	return mp.registry.CreateProject(name)
}

// AppendStatus appends a status to the project identified by token.
//
// A nil timestamp uses the current time. A supplied timestamp must be later
// than the project's last status, otherwise [ErrFailedPrecondition] is
// returned and nothing is stored. An unknown token returns [ErrNotFound].
func (mp *MishPulse) AppendStatus(ctx context.Context, token, message string, timestamp *time.Time) (Status, error) {
	return mp.registry.AppendStatus(ctx, token, message, timestamp)
}

// ListStatuses returns a copy of the project's statuses in timestamp order.
func (mp *MishPulse) ListStatuses(token string) ([]Status, error) {
	return mp.registry.ListStatuses(token)
}

// Link returns the submission link for a project token.
func (mp *MishPulse) Link(token string) string {
	return mp.server.Link(token)
}

// Projects returns the number of registered projects.
func (mp *MishPulse) Projects() int {
	return mp.registry.Len()
}

// Port returns the configured HTTP port.
func (mp *MishPulse) Port() int {
	return mp.port
}

// PublicURL returns the base URL used in submission links.
func (mp *MishPulse) PublicURL() string {
	return mp.publicURL
}
