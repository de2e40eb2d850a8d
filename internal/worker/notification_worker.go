package worker

import (
	"go.uber.org/zap"

	"github.com/deskflow/helpdesk/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the
// dispatcher. Delivery happens inline with Publish, after the write commits.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) {
	if notifications == nil {
		return
	}
	subscribed := notifications.RegisterHandlers()
	names := make([]string, 0, len(subscribed))
	for _, t := range subscribed {
		names = append(names, string(t))
	}
	logger.Info("notification worker started", zap.Strings("events", names))
}
