package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/placementops/ticketing/internal/events"
	"github.com/placementops/ticketing/internal/service"
)

// Notifier is the part of the notification service the worker drives.
type Notifier interface {
	RegisterHandlers()
	Deliveries() <-chan events.Event
	Deliver(ctx context.Context, event events.Event) error
}

// StartNotificationWorker registers notification handlers and drains the webhook
// queue until ctx is cancelled. The returned channel closes when the worker stops.
func StartNotificationWorker(ctx context.Context, notifier Notifier, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if notifier == nil {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier.RegisterHandlers()
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-notifier.Deliveries():
				if err := notifier.Deliver(ctx, event); err != nil {
					logger.Warn("webhook delivery failed",
						zap.String("event_type", string(event.Type)),
						zap.String("ticket_id", event.TicketID),
						zap.Error(err))
				}
			}
		}
	}()
	return done
}

var _ Notifier = (*service.NotificationService)(nil)
