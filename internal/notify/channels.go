package notify

import (
	"net/http"

	"github.com/tphakala/chargewatch-go/internal/conf"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

// BuildChannels assembles the enabled delivery channels from config.
// The returned slice may be empty; the dispatcher handles that fine.
func BuildChannels(settings conf.NotificationSettings, client *http.Client, log logger.Logger) []Channel {
	var channels []Channel
	if settings.Email.Enabled {
		channels = append(channels, NewEmailChannel(settings.Email))
	}
	if settings.SMS.Enabled {
		channels = append(channels, NewSMSChannel(settings.SMS, client))
	}
	if settings.Webhook.Enabled {
		channels = append(channels, NewWebhookChannel(settings.Webhook, client))
	}
	if settings.Push.Enabled {
		channels = append(channels, NewPushChannel(settings.Push, log))
	}
	return channels
}
