package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// webhookChannel POSTs the full alert as JSON to a configured endpoint.
type webhookChannel struct {
	settings conf.WebhookSettings
	client   *http.Client
}

// NewWebhookChannel creates the webhook channel. Webhooks carry every
// severity. A nil client gets a 10 second default.
func NewWebhookChannel(settings conf.WebhookSettings, client *http.Client) Channel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &webhookChannel{settings: settings, client: client}
}

func (c *webhookChannel) Name() string     { return "webhook" }
func (c *webhookChannel) MinSeverity() int { return 0 }

func (c *webhookChannel) Send(ctx context.Context, alert *entities.Alert) error {
	if c.settings.URL == "" {
		return fmt.Errorf("failed to send webhook: no URL configured")
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, value := range c.settings.Headers {
		req.Header.Set(name, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		return fmt.Errorf("failed to send webhook: endpoint returned status %d", resp.StatusCode)
	}
}
