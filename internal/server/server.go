package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/mishpulse/internal/notify"
	"github.com/jpalmerr/mishpulse/internal/registry"
)

const (
	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// serviceName is reported by the health endpoints.
	serviceName = "mishpulse"
)

// Registry is the project store the server exposes over HTTP.
type Registry interface {
	CreateProject(name string) (registry.Project, error)
	AppendStatus(ctx context.Context, token, message string, timestamp *time.Time) (registry.Status, error)
	ListStatuses(token string) ([]registry.Status, error)
	Project(token string) (registry.Project, error)
	Len() int
}

// Streamer delivers live status events for a project.
type Streamer interface {
	Subscribe(projectID string) <-chan notify.Event
	Unsubscribe(projectID string, ch <-chan notify.Event)
}

// Config holds server settings.
type Config struct {
	// Port is the TCP port to listen on. Zero picks a free port.
	Port int

	// PublicURL is the base of submission links, without trailing slash.
	PublicURL string

	// Version is reported by the health endpoints.
	Version string

	// RateLimit is the sustained requests per second. Zero or negative
	// disables rate limiting.
	RateLimit float64

	// RateBurst is the token bucket size.
	RateBurst int
}

// Server handles HTTP requests for the MishPulse API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	registry Registry
	streamer Streamer
	config   Config
	logger   *slog.Logger
	engine   *gin.Engine

	mu   sync.Mutex
	addr net.Addr
}

// SetMode switches gin to release mode for production environments.
func SetMode(environment string) {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - reg: project registry
//   - streamer: live event source for the stream route (may be nil, which disables streaming)
//   - cfg: listen port, link base and rate limits
//   - logger: logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(reg Registry, streamer Streamer, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	s := &Server{
		registry: reg,
		streamer: streamer,
		config:   cfg,
		logger:   logger,
	}
	s.engine = s.buildEngine()
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildEngine() *gin.Engine {
	var limiter *rate.Limiter
	if s.config.RateLimit > 0 {
		burst := s.config.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), burst)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		metricsMiddleware(),
		requestIDMiddleware(),
		s.recoveryMiddleware(),
		s.rateLimitMiddleware(limiter),
		s.loggingMiddleware(),
	)

	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, ErrCodeRouteNotFound, "Route not found", nil)
	})
	r.NoMethod(func(c *gin.Context) {
		writeError(c, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	projects := r.Group("/projects")
	projects.POST("", s.handleCreateProject)
	projects.POST("/:token/statuses", s.handleAppendStatus)
	projects.GET("/:token/statuses", s.handleListStatuses)
	projects.GET("/:token/statuses/stream", s.handleStream)

	return r
}

// Link returns the submission link for a project token.
func (s *Server) Link(token string) string {
	return fmt.Sprintf("%s/projects/%s/statuses", s.config.PublicURL, token)
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.config.Port, err)
	}

	httpServer := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so long-running handlers such as
		// the status stream end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
