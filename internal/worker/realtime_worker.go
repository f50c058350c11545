package worker

import (
	"github.com/spec-kit/chat-service/internal/events"
	"github.com/spec-kit/chat-service/internal/realtime"
	"github.com/spec-kit/chat-service/internal/service"
)

// StartEventWorkers attaches the realtime publisher and notification
// handlers to the dispatcher.
func StartEventWorkers(dispatcher events.Dispatcher, publisher *realtime.Publisher, notificationService *service.NotificationService) {
	if publisher != nil {
		publisher.Register(dispatcher)
	}
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
}
