package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookforge/internal/config"
	"bookforge/internal/notifications"
)

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newService(url string) notifications.Service {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	return notifications.NewService(&cfg)
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if svc.Enabled() {
		t.Fatal("expected noop service without topic")
	}
	if err := svc.NotifyRunFailed(context.Background(), notifications.RunSummary{BookID: "b"}, errors.New("x")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNotifyRunCompleted(t *testing.T) {
	srv, captured := newCaptureServer(t, http.StatusOK)
	svc := newService(srv.URL)

	err := svc.NotifyRunCompleted(context.Background(), notifications.RunSummary{
		BookID:     "quantum_detective",
		Title:      "Quantum Detective",
		Completed:  5,
		Generated:  2,
		ConcatPath: "/books/qd.mp3",
		Duration:   95 * time.Second,
	})
	if err != nil {
		t.Fatalf("NotifyRunCompleted: %v", err)
	}
	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	got := (*captured)[0]
	if got.title != "bookforge - Chapters Ready" || got.tags != "bookforge,run,completed" || got.priority != "" {
		t.Fatalf("unexpected headers %#v", got)
	}
	want := "📖 Quantum Detective (quantum_detective): 2 new chapter(s), 5 complete in 1m35s\nAudiobook: /books/qd.mp3"
	if got.body != want {
		t.Fatalf("unexpected body %q", got.body)
	}
}

func TestNotifyRunFailed(t *testing.T) {
	srv, captured := newCaptureServer(t, http.StatusOK)
	svc := newService(srv.URL)

	if err := svc.NotifyRunFailed(context.Background(), notifications.RunSummary{BookID: "qd", Completed: 3}, errors.New("narration failure: chapter 4")); err != nil {
		t.Fatalf("NotifyRunFailed: %v", err)
	}
	got := (*captured)[0]
	if got.priority != "high" {
		t.Fatalf("expected high priority, got %q", got.priority)
	}
	if !strings.Contains(got.body, "qd stopped after chapter 3") || !strings.Contains(got.body, "narration failure: chapter 4") {
		t.Fatalf("unexpected body %q", got.body)
	}
}

func TestSendSurfacesHTTPErrors(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusForbidden)
	svc := newService(srv.URL)

	err := svc.TestNotification(context.Background())
	if err == nil || !strings.Contains(err.Error(), "ntfy returned 403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
