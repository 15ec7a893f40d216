package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jpalmerr/mishpulse/internal/registry"
)

// connection pooling limits shared by all webhook deliveries
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultMaxConnsPerHost     = 10
	defaultIdleConnTimeout     = 60 * time.Second

	defaultWebhookTimeout = 5 * time.Second

	// maxErrorBodySize bounds how much of a failed response is read into the error.
	maxErrorBodySize = 1 << 10
)

// Webhook POSTs each accepted status as a JSON [Event] to a fixed URL.
//
// Timeouts are applied per delivery via context rather than on the client,
// and a non-2xx response is reported as an error.
type Webhook struct {
	url        string
	headers    map[string]string
	timeout    time.Duration
	httpClient *http.Client
}

// NewWebhook creates a [Webhook] delivering to url. A non-positive timeout
// uses 5s. Headers are copied.
func NewWebhook(url string, headers map[string]string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &Webhook{
		url:     url,
		headers: h,
		timeout: timeout,
		httpClient: &http.Client{
			// no default timeout - deliveries use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Notify implements [registry.Notifier].
func (w *Webhook) Notify(ctx context.Context, project registry.Project, status registry.Status) error {
	body, err := json.Marshal(NewEvent(project, status))
	if err != nil {
		return fmt.Errorf("failed to marshal status event: %w", err)
	}

	// the inbound request may finish before delivery does
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range w.headers {
		req.Header.Set(key, value)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close closes all idle connections in the webhook's connection pool.
// Safe to call multiple times.
func (w *Webhook) Close() {
	if w == nil || w.httpClient == nil {
		return
	}
	if transport, ok := w.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
