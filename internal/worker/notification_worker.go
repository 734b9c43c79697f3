package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/service"
)

// StartNotificationWorker registers the handlers that push message events to chat sessions.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		logger.Warn("notification service not configured; chat sessions will not receive live updates")
		return
	}
	notificationService.RegisterHandlers()
	logger.Info("notification worker started")
}
