package mishpulse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// postJSON sends a JSON request to the handler and returns the recorder.
func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// submissionPath creates a project over HTTP and returns the path part of
// its submission link.
func submissionPath(t *testing.T, mp *MishPulse, name string) string {
	t.Helper()
	rec := postJSON(t, mp.Handler(), "/projects", `{"name":"`+name+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /projects status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode project response: %v", err)
	}
	return strings.TrimPrefix(resp.Link, mp.PublicURL())
}

func TestWithStatusCallback_InvokedOnAppend(t *testing.T) {
	var (
		mu       sync.Mutex
		projects []Project
		statuses []Status
	)
	mp, err := New(
		WithLogger(testLogger()),
		WithStatusCallback(func(p Project, s Status) {
			mu.Lock()
			defer mu.Unlock()
			projects = append(projects, p)
			statuses = append(statuses, s)
		}),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	path := submissionPath(t, mp, "callbacks")
	rec := postJSON(t, mp.Handler(), path, `{"message":"deployed","timestamp":"2024-01-01T00:00:00Z"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, body = %s", rec.Code, rec.Body.String())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) != 1 {
		t.Fatalf("callback invoked %d times, want 1", len(statuses))
	}
	if statuses[0].Message != "deployed" {
		t.Errorf("Message = %q, want %q", statuses[0].Message, "deployed")
	}
	if projects[0].Name != "callbacks" {
		t.Errorf("Name = %q, want %q", projects[0].Name, "callbacks")
	}
	if projects[0].StatusCount != 1 {
		t.Errorf("StatusCount = %d, want 1", projects[0].StatusCount)
	}
}

func TestWithStatusCallback_NotInvokedOnRejection(t *testing.T) {
	var calls atomic.Int32
	mp, err := New(
		WithLogger(testLogger()),
		WithStatusCallback(func(Project, Status) { calls.Add(1) }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	path := submissionPath(t, mp, "rejections")
	body := `{"message":"x","timestamp":"2024-01-01T00:00:00Z"}`
	postJSON(t, mp.Handler(), path, body)
	rec := postJSON(t, mp.Handler(), path, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate timestamp status = %d, want 400", rec.Code)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("callback invoked %d times, want 1", got)
	}
}

func TestWithStatusCallback_PanicRecovery(t *testing.T) {
	var normalCalled atomic.Bool

	// use a logger that captures output to verify panic was logged
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	mp, err := New(
		WithLogger(logger),
		WithStatusCallback(func(Project, Status) { panic("intentional test panic") }),
		WithStatusCallback(func(Project, Status) { normalCalled.Store(true) }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	p, err := mp.CreateProject("panics")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	// should not panic and should not fail the append
	if _, err := mp.AppendStatus(context.Background(), p.Token, "hello", nil); err != nil {
		t.Fatalf("AppendStatus() error = %v", err)
	}

	if !normalCalled.Load() {
		t.Error("subsequent callbacks should still run after panic")
	}
	if !strings.Contains(logBuf.String(), "intentional test panic") {
		t.Errorf("panic should have been logged, got: %s", logBuf.String())
	}
}

func TestWithStatusCallback_NilIsSafe(t *testing.T) {
	mp, err := New(WithStatusCallback(nil), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("New() error = %v, want nil (nil callback should be accepted)", err)
	}

	p, err := mp.CreateProject("nil")
	if err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	if _, err := mp.AppendStatus(context.Background(), p.Token, "ok", nil); err != nil {
		t.Errorf("AppendStatus() error = %v", err)
	}
}

func TestWithNotifier_ExecutionOrder(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) Notifier {
		return NotifierFunc(func(context.Context, Project, Status) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	mp, err := New(
		WithLogger(testLogger()),
		WithNotifier("first", record("first")),
		WithStatusCallback(func(Project, Status) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, "callback")
		}),
		WithNotifier("last", record("last")),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	p, _ := mp.CreateProject("ordered")
	if _, err := mp.AppendStatus(context.Background(), p.Token, "go", nil); err != nil {
		t.Fatalf("AppendStatus() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "callback", "last"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestWithNotifier_FailureDoesNotRejectStatus(t *testing.T) {
	mp, err := New(
		WithLogger(testLogger()),
		WithNotifier("broken", NotifierFunc(func(context.Context, Project, Status) error {
			return errors.New("downstream unavailable")
		})),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	path := submissionPath(t, mp, "resilient")
	rec := postJSON(t, mp.Handler(), path, `{"message":"still stored"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", rec.Code)
	}
}

func TestWithConsole(t *testing.T) {
	var buf bytes.Buffer
	mp, err := New(WithLogger(testLogger()), WithConsole(&buf))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	p, _ := mp.CreateProject("Build")
	at := time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC)
	if _, err := mp.AppendStatus(context.Background(), p.Token, "green", &at); err != nil {
		t.Fatalf("AppendStatus() error = %v", err)
	}

	want := "[Project Build (" + p.ID + ")] 2024-01-01T00:00:01Z: green\n"
	if buf.String() != want {
		t.Errorf("console output = %q, want %q", buf.String(), want)
	}
}

func TestWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mp, err := New(WithLogger(testLogger()), WithRedis(client, "test:", time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	p, _ := mp.CreateProject("published")

	sub := client.Subscribe(context.Background(), "test:"+p.ID)
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if _, err := mp.AppendStatus(context.Background(), p.Token, "over redis", nil); err != nil {
		t.Fatalf("AppendStatus() error = %v", err)
	}

	select {
	case msg := <-sub.Channel():
		if !strings.Contains(msg.Payload, `"message":"over redis"`) {
			t.Errorf("payload = %s", msg.Payload)
		}
		if strings.Contains(msg.Payload, p.Token) {
			t.Error("payload must not contain the project token")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}
}

func TestWithWebhook(t *testing.T) {
	received := make(chan []byte, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Hook-Secret") != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		received <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	mp, err := New(
		WithLogger(testLogger()),
		WithWebhook(hook.URL, map[string]string{"X-Hook-Secret": "s3cret"}, time.Second),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer mp.Close()

	p, _ := mp.CreateProject("hooked")
	if _, err := mp.AppendStatus(context.Background(), p.Token, "over http", nil); err != nil {
		t.Fatalf("AppendStatus() error = %v", err)
	}

	select {
	case body := <-received:
		var event struct {
			ProjectID string `json:"project_id"`
			Message   string `json:"message"`
		}
		if err := json.Unmarshal(body, &event); err != nil {
			t.Fatalf("invalid webhook body: %v", err)
		}
		if event.ProjectID != p.ID || event.Message != "over http" {
			t.Errorf("event = %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not delivered")
	}
}
