package notify

import (
	"context"

	"github.com/tphakala/chargewatch-go/internal/datastore/entities"
	"github.com/tphakala/chargewatch-go/internal/logger"
)

// Dispatcher fans an alert out to every registered channel whose severity
// gate the alert clears.
type Dispatcher struct {
	channels []Channel
	recorder Recorder
	log      logger.Logger
}

// NewDispatcher creates a dispatcher over the given channels. A nil
// recorder disables metrics.
func NewDispatcher(channels []Channel, recorder Recorder, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		recorder: recorder,
		log:      log,
	}
}

// Dispatch sends the alert on each eligible channel. Failures are logged
// and counted, never propagated.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *entities.Alert) {
	for _, channel := range d.channels {
		if alert.Severity < channel.MinSeverity() {
			continue
		}
		if err := channel.Send(ctx, alert); err != nil {
			d.log.Warn("notification delivery failed",
				logger.String("channel", channel.Name()),
				logger.Uint64("alert_id", uint64(alert.ID)),
				logger.Error(err),
			)
			d.record(channel.Name(), "error")
			continue
		}
		d.log.Debug("notification delivered",
			logger.String("channel", channel.Name()),
			logger.Uint64("alert_id", uint64(alert.ID)),
		)
		d.record(channel.Name(), "success")
	}
}

func (d *Dispatcher) record(channel, result string) {
	if d.recorder != nil {
		d.recorder.NotificationSent(channel, result)
	}
}
