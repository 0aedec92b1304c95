package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bobmcallan/tickerwatch/internal/common"
	"github.com/bobmcallan/tickerwatch/internal/interfaces"
	"github.com/bobmcallan/tickerwatch/internal/models"
)

// webhookPayload is the chat-style body posted for each alert. The text
// field renders in Slack and Mattermost; the rest is for programmatic sinks.
type webhookPayload struct {
	Text  string                   `json:"text"`
	Alert models.AlertNotification `json:"alert"`
}

// WebhookNotifier POSTs each notification as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *common.Logger
}

// NewWebhookNotifier creates a notifier posting to url with the given timeout
func NewWebhookNotifier(url string, timeout time.Duration, logger *common.Logger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Notify delivers n. A non-2xx response is an error.
func (w *WebhookNotifier) Notify(ctx context.Context, n models.AlertNotification) error {
	body, err := json.Marshal(webhookPayload{
		Text:  fmt.Sprintf("*%s*\n%s", n.Title(), message(n)),
		Alert: n,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.logger.Debug().Str("symbol", n.Symbol).Int64("alert_id", n.AlertID).Msg("Webhook delivered")
	return nil
}

// message is the human-readable notification body
func message(n models.AlertNotification) string {
	return fmt.Sprintf("%s is now %.2f (target %s %.2f)", n.Symbol, n.CurrentPrice, n.Condition, n.TargetPrice)
}

var _ interfaces.Notifier = (*WebhookNotifier)(nil)
