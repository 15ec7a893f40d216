// Standalone status producer for trying out the CLI.
//
// Usage:
//
//	go run ./cmd/mishpulse serve
//
// Then in another terminal:
//
//	go run ./example/cmd/producer --url http://localhost:8080 --name build
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	var (
		baseURL  string
		name     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "producer",
		Short: "Register a project and submit a heartbeat status on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, baseURL, name, interval)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "MishPulse base URL")
	cmd.Flags().StringVar(&name, "name", "producer", "project name")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "time between statuses")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, baseURL, name string, interval time.Duration) error {
	var project struct {
		ID   string `json:"id"`
		Link string `json:"link"`
	}
	if err := post(ctx, baseURL+"/projects", map[string]string{"name": name}, &project); err != nil {
		return fmt.Errorf("failed to register project: %w", err)
	}

	fmt.Printf("Registered %q (%s)\n", name, project.ID)
	fmt.Printf("Submission link: %s\n", project.Link)
	fmt.Println("Press Ctrl+C to stop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		msg := map[string]string{"message": fmt.Sprintf("heartbeat %d", n)}
		if err := post(ctx, project.Link, msg, nil); err != nil {
			slog.Error("failed to submit status", "error", err)
		}
	}
}

func post(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
