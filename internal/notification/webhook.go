package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookNotifier posts alerts as JSON to an HTTP endpoint. Unlike the
// text channels it forwards the structured signal, so a downstream system
// can act on the levels without parsing the message body.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// webhookPayload is the wire format posted to the endpoint.
type webhookPayload struct {
	Event   string `json:"event"`
	SentAt  string `json:"sent_at"`
	Alert   Alert  `json:"alert"`
	Version int    `json:"version"`
}

const webhookPayloadVersion = 1

// NewWebhookNotifier creates a webhook notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	event := "alert"
	if alert.Signal != nil {
		event = "trade_signal"
	}
	body, err := json.Marshal(webhookPayload{
		Event:   event,
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Alert:   alert,
		Version: webhookPayloadVersion,
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
