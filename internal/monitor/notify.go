package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// Channel is an interface for change notification delivery.
type Channel interface {
	Send(ctx context.Context, changes []Change) error
	Type() string
}

// Notifier fans detected changes out to all registered channels.
type Notifier struct {
	channels []Channel
	logger   *slog.Logger
}

// NewNotifier creates a change notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{
		logger: logger.With("component", "notifier"),
	}
}

// AddChannel registers a delivery channel.
func (n *Notifier) AddChannel(ch Channel) {
	n.channels = append(n.channels, ch)
}

// Notify sends changes to every channel. Delivery failures are logged,
// not returned; one broken channel must not silence the others.
func (n *Notifier) Notify(ctx context.Context, changes []Change) {
	if len(changes) == 0 {
		return
	}
	for _, ch := range n.channels {
		if err := ch.Send(ctx, changes); err != nil {
			n.logger.Error("notification failed", "channel", ch.Type(), "error", err)
		}
	}
}

// WebhookChannel POSTs changes as JSON to a fixed URL.
type WebhookChannel struct {
	url    string
	client *resty.Client
	logger *slog.Logger
}

// NewWebhookChannel creates a webhook channel.
func NewWebhookChannel(url string, timeout time.Duration, logger *slog.Logger) *WebhookChannel {
	return &WebhookChannel{
		url:    url,
		client: resty.New().SetTimeout(timeout),
		logger: logger.With("component", "webhook"),
	}
}

// Type returns the channel identifier.
func (w *WebhookChannel) Type() string { return "webhook" }

// Send delivers the change set in one POST.
func (w *WebhookChannel) Send(ctx context.Context, changes []Change) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"changes":   changes,
			"count":     len(changes),
			"timestamp": time.Now(),
		}).
		Post(w.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	w.logger.Debug("webhook delivered", "url", w.url, "changes", len(changes), "took", resp.Time())
	return nil
}
