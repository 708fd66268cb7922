package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookforge/internal/config"
)

const userAgent = "bookforge/0.1.0"

// RunSummary describes a finished run.
type RunSummary struct {
	BookID     string
	Title      string
	Completed  int
	Generated  int
	ConcatPath string
	Duration   time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, summary RunSummary, err error) error
	TestNotification(ctx context.Context) error
	Enabled() bool
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Enabled() bool { return true }

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "📖 %s: %d new chapter(s), %d complete", bookLabel(summary), summary.Generated, summary.Completed)
	if d := formatDuration(summary.Duration); d != "" {
		fmt.Fprintf(&builder, " in %s", d)
	}
	if path := strings.TrimSpace(summary.ConcatPath); path != "" {
		fmt.Fprintf(&builder, "\nAudiobook: %s", path)
	}
	data := payload{
		title:   "bookforge - Chapters Ready",
		message: builder.String(),
		tags:    []string{"bookforge", "run", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, summary RunSummary, runErr error) error {
	var builder strings.Builder
	fmt.Fprintf(&builder, "❌ %s stopped after chapter %d", bookLabel(summary), summary.Completed)
	builder.WriteString("\n")
	if runErr != nil {
		builder.WriteString(strings.TrimSpace(runErr.Error()))
	} else {
		builder.WriteString("unknown error")
	}
	data := payload{
		title:    "bookforge - Run Failed",
		message:  builder.String(),
		tags:     []string{"bookforge", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "bookforge - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"bookforge", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func bookLabel(summary RunSummary) string {
	title := strings.TrimSpace(summary.Title)
	switch {
	case title == "":
		return summary.BookID
	case summary.BookID == "":
		return title
	default:
		return fmt.Sprintf("%s (%s)", title, summary.BookID)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return ""
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error     { return nil }
func (noopService) NotifyRunFailed(context.Context, RunSummary, error) error { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
func (noopService) Enabled() bool                                            { return false }
