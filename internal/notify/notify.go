// Package notify delivers alerts over email, SMS, webhook and push
// channels. Channels are isolated: one failing delivery never blocks or
// fails the others, and the dispatcher itself never returns an error.
package notify

import (
	"context"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
)

// Channel is one delivery mechanism.
type Channel interface {
	// Name identifies the channel in logs and metrics.
	Name() string
	// MinSeverity is the lowest alert severity the channel accepts;
	// 0 means the channel accepts everything.
	MinSeverity() int
	// Send delivers one alert.
	Send(ctx context.Context, alert *entities.Alert) error
}

// Recorder counts delivery attempts for metrics.
type Recorder interface {
	NotificationSent(channel, result string)
}
