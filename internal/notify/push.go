package notify

import (
	"context"
	"fmt"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

// pushChannel delivers alerts to any shoutrrr-supported push service
// (ntfy, telegram, gotify and others). Without a service URL it degrades
// to a logged no-op so dispatch order stays stable across configs.
type pushChannel struct {
	settings conf.PushSettings
	log      logger.Logger
}

// NewPushChannel creates the push channel. Alerts below severity 3 are
// not pushed.
func NewPushChannel(settings conf.PushSettings, log logger.Logger) Channel {
	return &pushChannel{settings: settings, log: log}
}

func (c *pushChannel) Name() string     { return "push" }
func (c *pushChannel) MinSeverity() int { return 3 }

func (c *pushChannel) Send(ctx context.Context, alert *entities.Alert) error {
	if c.settings.URL == "" {
		c.log.Debug("push channel has no service URL, skipping",
			logger.Uint64("alert_id", uint64(alert.ID)),
		)
		return nil
	}

	sender, err := shoutrrr.CreateSender(c.settings.URL)
	if err != nil {
		return fmt.Errorf("failed to create push sender: %w", err)
	}

	params := types.Params{
		"title": fmt.Sprintf("%s alert (severity %d)", alert.AlertType, alert.Severity),
	}
	for _, sendErr := range sender.Send(alert.Message, &params) {
		if sendErr != nil {
			return fmt.Errorf("failed to send push notification: %w", sendErr)
		}
	}
	return nil
}
