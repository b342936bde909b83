package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/placementops/ticketing/internal/config"
	"github.com/placementops/ticketing/internal/events"
	"github.com/placementops/ticketing/internal/repository"
)

const webhookQueueSize = 256

// NotificationService turns domain events into emails and webhook deliveries.
// Handlers never fail the originating operation; webhooks are queued and
// delivered by a worker.
type NotificationService struct {
	dispatcher events.Dispatcher
	store      repository.Store
	logger     *zap.Logger
	cfg        config.NotificationConfig
	queue      chan events.Event
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, store repository.Store, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		store:      store,
		logger:     orNop(logger),
		cfg:        cfg,
		queue:      make(chan events.Event, webhookQueueSize),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventClientOnboarded, n.handleClientOnboarded)
}

// Deliveries is the queue of events awaiting webhook delivery.
func (n *NotificationService) Deliveries() <-chan events.Event {
	return n.queue
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.enqueueWebhook(event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.enqueueWebhook(event)
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigned", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.TicketAssignedPayload); ok {
		n.emailUsers(ctx, event, payload.UserIDs)
	}
	n.enqueueWebhook(event)
	return nil
}

func (n *NotificationService) handleTicketCommentAdded(ctx context.Context, event events.Event) error {
	n.logger.Debug("TicketCommentAdded", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketEscalated(ctx context.Context, event events.Event) error {
	n.logger.Warn("TicketEscalated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.TicketEscalatedPayload); ok && payload.CAID != "" {
		n.emailUsers(ctx, event, []string{payload.CAID})
	}
	n.enqueueWebhook(event)
	return nil
}

func (n *NotificationService) handleClientOnboarded(ctx context.Context, event events.Event) error {
	n.logger.Info("ClientOnboarded", zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.ClientOnboardedPayload); ok {
		n.emailUsers(ctx, event, []string{payload.AccountManagerID, payload.CATeamLeadID, payload.CareerAssociateID, payload.ScraperID})
	}
	n.enqueueWebhook(event)
	return nil
}

// emailUsers is a delivery stub: it resolves recipients and logs the message.
func (n *NotificationService) emailUsers(ctx context.Context, event events.Event, userIDs []string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || n.store == nil {
		return
	}
	users, err := n.store.Repos().Users.ListByIDs(ctx, dedupe(userIDs))
	if err != nil {
		n.logger.Warn("email recipients lookup failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return
	}
	for _, u := range users {
		if !u.IsActive || u.Email == "" {
			continue
		}
		n.logger.Debug("sendEmailNotificationStub",
			zap.String("from", n.cfg.EmailFrom),
			zap.String("to", u.Email),
			zap.String("ticket_id", event.TicketID),
			zap.String("event_type", string(event.Type)))
	}
}

func (n *NotificationService) enqueueWebhook(event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	select {
	case n.queue <- event:
	default:
		n.logger.Warn("webhook queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
}

// Deliver posts one event to the configured webhook.
func (n *NotificationService) Deliver(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := n.cfg.WebhookTimeout()
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	agent := fiber.Post(n.cfg.WebhookURL).JSON(event).Timeout(timeout)
	code, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook delivery: %w", errs[0])
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("webhook delivery: unexpected status %d", code)
	}
	n.logger.Debug("webhook delivered",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Int("status", code))
	return nil
}
