package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/events"
	"github.com/spec-kit/ticket-chat/internal/notify"
	"github.com/spec-kit/ticket-chat/internal/observability"
)

// NotificationService forwards domain events to the push channel.
type NotificationService struct {
	dispatcher events.Dispatcher
	publisher  notify.Publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, publisher notify.Publisher, metrics *observability.Metrics, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventMessageCreated, n.handleMessageCreated)
}

func (n *NotificationService) handleMessageCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MessageCreatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	n.logger.Info("MessageCreated",
		zap.String("ticket_id", event.TicketID),
		zap.String("message_id", payload.MessageID),
		zap.String("direction", string(payload.Direction)))
	if n.publisher == nil {
		return nil
	}

	err := n.publisher.Publish(ctx, n.cfg.Channel, domain.MessageCreated{
		ID:        event.ID,
		TicketID:  event.TicketID,
		MessageID: payload.MessageID,
		Preview:   payload.BodyPreview,
		CreatedAt: payload.CreatedAt,
	})
	if err != nil {
		n.metrics.RecordEvent("failed")
		n.logger.Error("failed to publish notification",
			zap.String("ticket_id", event.TicketID),
			zap.String("channel", n.cfg.Channel),
			zap.Error(err))
		return err
	}
	n.metrics.RecordEvent("published")
	return nil
}
