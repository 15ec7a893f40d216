// Package mishpulse provides an embeddable status collector for external
// producers.
//
// A producer registers as a project and receives a unique submission link.
// It then pushes timestamped status messages to that link. Each project keeps
// its statuses in strictly increasing timestamp order, and the history can be
// listed or followed live over Server-Sent Events.
//
// # Quick Start
//
// Create the collector and serve it with graceful shutdown:
//
//	mp, _ := mishpulse.New(mishpulse.WithPublicURL("https://pulse.example.com"))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	mp.Start(ctx) // blocks until context is cancelled
//
// # Notifications
//
// Every accepted status is fanned out to the configured side channels after
// it is stored:
//
//	mp, err := mishpulse.New(
//	    mishpulse.WithConsole(os.Stdout),
//	    mishpulse.WithRedis(redisClient, "", 2*time.Second),
//	    mishpulse.WithWebhook("https://hooks.example.com/status", nil, 5*time.Second),
//	    mishpulse.WithStatusCallback(func(p mishpulse.Project, s mishpulse.Status) {
//	        log.Printf("%s: %s", p.Name, s.Message)
//	    }),
//	)
//
// Delivery is best-effort. A failing notifier is logged and never rejects
// the status.
//
// # Architecture
//
// MishPulse consists of several internal packages (under internal/):
//
//   - internal/registry: In-memory project store with timestamp ordering
//   - internal/notify: Console, Redis, webhook and live-stream notifiers
//   - internal/server: HTTP API with Server-Sent Events and Prometheus metrics
//
// The internal packages are not part of the public API and may change
// without notice. State is held in memory and is lost on restart.
package mishpulse
