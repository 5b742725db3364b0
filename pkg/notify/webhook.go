package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender posts payloads as JSON to a push relay endpoint.
type WebhookSender struct {
	url    string
	client *http.Client
}

// WebhookOption configures the webhook sender.
type WebhookOption func(*WebhookSender)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *WebhookSender) {
		if client != nil {
			w.client = client
		}
	}
}

// NewWebhookSender constructs a webhook sender.
func NewWebhookSender(url string, opts ...WebhookOption) (*WebhookSender, error) {
	if url == "" {
		return nil, errors.New("webhook sender: empty url")
	}
	w := &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Send posts the payload; any non-2xx response is a delivery failure.
func (w *WebhookSender) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sender: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
