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

// smsChannel delivers alerts through an HTTP SMS gateway.
type smsChannel struct {
	settings conf.SMSSettings
	client   *http.Client
}

// NewSMSChannel creates the SMS channel. Only severity 4 and above is
// texted. A nil client gets a 10 second default.
func NewSMSChannel(settings conf.SMSSettings, client *http.Client) Channel {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &smsChannel{settings: settings, client: client}
}

func (c *smsChannel) Name() string     { return "sms" }
func (c *smsChannel) MinSeverity() int { return 4 }

// Send texts each recipient individually so one rejected number does not
// block the rest. The last failure is returned.
func (c *smsChannel) Send(ctx context.Context, alert *entities.Alert) error {
	if c.settings.APIURL == "" {
		return fmt.Errorf("failed to send SMS: no gateway URL configured")
	}
	if len(c.settings.Recipients) == 0 {
		return nil
	}

	message := fmt.Sprintf("Alert: %s - %s (severity %d/5)", alert.AlertType, alert.Message, alert.Severity)

	var lastErr error
	for _, recipient := range c.settings.Recipients {
		if err := c.sendOne(ctx, recipient, message); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *smsChannel) sendOne(ctx context.Context, recipient, message string) error {
	payload, err := json.Marshal(map[string]any{
		"api_key": c.settings.APIKey,
		"to":      recipient,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode SMS payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.settings.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", recipient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send SMS to %s: gateway returned status %d", recipient, resp.StatusCode)
	}
	return nil
}
