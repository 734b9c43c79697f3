package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/events"
	"github.com/spec-kit/ticket-chat/internal/mocks"
	"github.com/spec-kit/ticket-chat/internal/observability"
)

func TestNotificationService_ForwardsMessageCreated(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	svc := NewNotificationService(dispatcher, publisher, metrics, zap.NewNop(), config.NotificationConfig{Channel: "chat"})
	svc.RegisterHandlers()

	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	publisher.EXPECT().Publish(gomock.Any(), "chat", domain.MessageCreated{
		ID:        "ev-1",
		TicketID:  "t1",
		MessageID: "m1",
		Preview:   "hello",
		CreatedAt: at,
	}).Return(nil)

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:       "ev-1",
		Type:     events.EventMessageCreated,
		TicketID: "t1",
		Payload:  events.MessageCreatedPayload{MessageID: "m1", BodyPreview: "hello", CreatedAt: at},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), metrics.Snapshot().Events["published"])
}

func TestNotificationService_PublishFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, publisher, metrics, zap.NewNop(), config.NotificationConfig{Channel: "chat"}).RegisterHandlers()

	boom := errors.New("stream unavailable")
	publisher.EXPECT().Publish(gomock.Any(), "chat", gomock.Any()).Return(boom)

	err := dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventMessageCreated,
		Payload: events.MessageCreatedPayload{MessageID: "m1"},
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, int64(1), metrics.Snapshot().Events["failed"])
}

func TestNotificationService_RejectsUnexpectedPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := mocks.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, publisher, nil, zap.NewNop(), config.NotificationConfig{}).RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.Event{Type: events.EventMessageCreated, Payload: "oops"})
	require.Error(t, err)
}
