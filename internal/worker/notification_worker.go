package worker

import (
	"github.com/campus-market/backend/internal/service"
)

// StartNotificationWorker starts the pool and subscribes the notification
// handlers that feed it.
func StartNotificationWorker(pool *Pool, notificationService *service.NotificationService) {
	if pool != nil {
		pool.Start()
	}
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
