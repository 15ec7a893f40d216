package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jpalmerr/mishpulse"
)

func main() {
	// alert on any status that reports an outage
	mp, err := mishpulse.New(
		mishpulse.WithPort(8080),
		mishpulse.WithConsole(os.Stdout),
		mishpulse.WithStatusCallback(func(p mishpulse.Project, s mishpulse.Status) {
			if strings.HasSuffix(s.Message, " down") {
				slog.Warn("ALERT: producer reports down", "project", p.Name)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create mishpulse", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   MishPulse Demo                                      ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   API at http://localhost:8080                        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Producers (see producer.go):                        ║")
	fmt.Println("  ║   • orders, payments                                  ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start mock producers once the API is listening
	go func() {
		time.Sleep(200 * time.Millisecond)
		for _, name := range []string{"orders", "payments"} {
			go func() {
				if err := RunMockProducer(ctx, mp.PublicURL(), name); err != nil {
					slog.Error("producer stopped", "name", name, "error", err)
				}
			}()
		}
	}()

	if err := mp.Start(ctx); err != nil {
		slog.Error("mishpulse error", "error", err)
		os.Exit(1)
	}
}
