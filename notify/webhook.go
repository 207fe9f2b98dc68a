package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"vidcompress/logger"
)

// UserAgent is sent on every webhook delivery.
const UserAgent = "vidcompress/1.0"

// WebhookPublisher POSTs notifications as JSON to a fixed URL.
type WebhookPublisher struct {
	URL     string
	Headers map[string]string
	HTTP    *http.Client
	Now     func() time.Time
}

func NewWebhookPublisher(url string, headers map[string]string) *WebhookPublisher {
	return &WebhookPublisher{
		URL:     url,
		Headers: headers,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		Now:     time.Now,
	}
}

type webhookPayload struct {
	DeliveryID string            `json:"delivery_id"`
	Subject    string            `json:"subject"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

func (p *WebhookPublisher) Publish(ctx context.Context, n Notification) error {
	if p.URL == "" {
		return nil
	}

	deliveryID := uuid.NewString()
	payloadBytes, err := json.Marshal(webhookPayload{
		DeliveryID: deliveryID,
		Subject:    n.Subject,
		Message:    n.Message,
		Attributes: n.Attributes,
		Timestamp:  p.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Delivery-ID", deliveryID)
	for key, value := range p.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %d", resp.StatusCode)
	}

	logger.Infof("Successfully sent webhook %s to %s", deliveryID, p.URL)
	return nil
}
