package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"time"
)

// RunMockProducer registers a project with the API at baseURL and then
// submits a status every 2-5 seconds, cycling through ok, degraded and down,
// until ctx is cancelled.
func RunMockProducer(ctx context.Context, baseURL, name string) error {
	link, err := registerProject(ctx, baseURL, name)
	if err != nil {
		return err
	}
	slog.Info("producer registered", "name", name, "link", link)

	statuses := []string{"ok", "degraded", "down"}
	idx := 0

	for {
		// simulate irregular reporting
		wait := time.Duration(2+rand.Intn(4)) * time.Second
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}

		msg := fmt.Sprintf("%s is %s", name, statuses[idx])
		if err := postJSON(ctx, link, map[string]string{"message": msg}, nil); err != nil {
			slog.Error("failed to submit status", "name", name, "error", err)
			continue
		}

		// move on to the next status now and then
		if rand.Intn(3) == 0 {
			idx = (idx + 1) % len(statuses)
		}
	}
}

func registerProject(ctx context.Context, baseURL, name string) (string, error) {
	var resp struct {
		Link string `json:"link"`
	}
	if err := postJSON(ctx, baseURL+"/projects", map[string]string{"name": name}, &resp); err != nil {
		return "", fmt.Errorf("failed to register %s: %w", name, err)
	}
	return resp.Link, nil
}

// postJSON POSTs body as JSON and decodes the response into out when non-nil.
func postJSON(ctx context.Context, url string, body, out any) error {
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
