package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Notification is one operational message emitted to on-call channels.
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Severity string            `json:"severity"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// Notifier delivers operational notifications.
type Notifier interface {
	Notify(ctx context.Context, note Notification) error
}

// HTTPNotifier posts notifications to a webhook endpoint.
type HTTPNotifier struct {
	url        string
	httpClient *http.Client
}

// NewHTTPNotifier constructs a webhook notifier; an empty URL yields a
// client that reports itself unconfigured on use.
func NewHTTPNotifier(url string, timeout time.Duration) *HTTPNotifier {
	return &HTTPNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify posts the notification as JSON.
func (n *HTTPNotifier) Notify(ctx context.Context, note Notification) error {
	if n == nil || n.url == "" {
		return fmt.Errorf("notifier not configured")
	}
	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notifier returned %s", resp.Status)
	}
	return nil
}

// LogNotifier writes notifications to the structured log. Used when no
// webhook is configured so alarms are never silently dropped.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Warn("notification",
		slog.String("title", note.Title),
		slog.String("severity", note.Severity),
		slog.String("body", note.Body))
	return nil
}
