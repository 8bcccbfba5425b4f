package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// Notifier delivers the terminal notification of a run.
type Notifier interface {
	Notify(ctx context.Context, event domain.PipelineEvent) error
}

// LogNotifier writes the notification to a logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger means slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event at INFO on success and ERROR otherwise.
func (n *LogNotifier) Notify(ctx context.Context, event domain.PipelineEvent) error {
	level := slog.LevelInfo
	msg := "pipeline succeeded"
	if event.Status != domain.PipelineStatusSuccess {
		level = slog.LevelError
		msg = "pipeline failed"
	}

	attrs := []any{
		"event_id", event.EventID,
		"run", event.PipelineRunID,
		"status", event.Status,
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, k, v)
	}
	n.logger.Log(ctx, level, msg, attrs...)
	return nil
}

// WebhookNotifier posts the event as JSON.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithWebhookClient sets the HTTP client.
func WithWebhookClient(c *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		n.client = c
	}
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	n := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Notify posts the event. Any non-2xx response is an error.
func (n *WebhookNotifier) Notify(ctx context.Context, event domain.PipelineEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode notification")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "invalid notification URL")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "notification endpoint is not reachable")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Newf(errors.CodeUnavailable, "notification endpoint returned %s", resp.Status).
			WithContext("url", n.url)
	}
	return nil
}

// MultiNotifier fans one event out to several notifiers. Every notifier is
// called; their errors are joined.
type MultiNotifier []Notifier

// Notify calls every notifier.
func (m MultiNotifier) Notify(ctx context.Context, event domain.PipelineEvent) error {
	var errs []error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
