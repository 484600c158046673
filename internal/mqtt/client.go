// Package mqtt publishes alerts and sensor readings to an optional MQTT
// broker. Without a configured broker the publisher is a silent no-op so
// the alert path never branches on configuration.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Client publishes JSON payloads to the configured broker.
type Client struct {
	settings conf.MQTTSettings
	log      logger.Logger
	paho     paho.Client
}

// NewClient creates a client. When no broker is configured the returned
// client accepts publishes and drops them.
func NewClient(settings conf.MQTTSettings, log logger.Logger) *Client {
	c := &Client{settings: settings, log: log}
	if settings.Broker == "" {
		return c
	}

	clientID := settings.ClientID
	if clientID == "" {
		clientID = "chargewatch"
	}
	opts := paho.NewClientOptions().
		AddBroker(settings.Broker).
		SetClientID(clientID).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(false)
	c.paho = paho.NewClient(opts)
	return c
}

// Enabled reports whether a broker is configured.
func (c *Client) Enabled() bool {
	return c.paho != nil
}

// Connect establishes the broker connection. No-op without a broker.
func (c *Client) Connect(ctx context.Context) error {
	if c.paho == nil {
		return nil
	}
	token := c.paho.Connect()
	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to connect to mqtt broker: %w", ctx.Err())
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	c.log.Info("connected to mqtt broker", logger.String("broker", c.settings.Broker))
	return nil
}

// Disconnect closes the broker connection.
func (c *Client) Disconnect() {
	if c.paho != nil && c.paho.IsConnected() {
		c.paho.Disconnect(250)
	}
}

// IsConnected reports whether the broker connection is up.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.paho.IsConnected()
}

// PublishAlert publishes one alert to <prefix>/alerts.
func (c *Client) PublishAlert(ctx context.Context, alert *entities.Alert) error {
	return c.publishJSON(ctx, c.topic("alerts"), alert)
}

// PublishReading publishes one reading to <prefix>/readings/<type>.
func (c *Client) PublishReading(ctx context.Context, reading *entities.SensorReading) error {
	return c.publishJSON(ctx, c.topic("readings/"+reading.SensorType), reading)
}

func (c *Client) publishJSON(ctx context.Context, topic string, payload any) error {
	if c.paho == nil {
		return nil
	}
	if !c.paho.IsConnected() {
		// Try to recover; paho reconnects in the background, so this is
		// cheap when the broker is still down.
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode mqtt payload: %w", err)
	}

	token := c.paho.Publish(topic, 0, false, data)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to publish to %s: %w", topic, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("failed to publish to %s: timeout", topic)
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (c *Client) topic(suffix string) string {
	prefix := c.settings.TopicPrefix
	if prefix == "" {
		prefix = "chargewatch"
	}
	return prefix + "/" + suffix
}
