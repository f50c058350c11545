package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/chat-service/internal/config"
	"github.com/spec-kit/chat-service/internal/events"
)

// NotificationService emits operational notifications for chat events.
// Chat-transcript delivery itself happens over the realtime feed; this
// covers the out-of-band channels (email/webhook stubs) and ops logging.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventSessionCreated, n.handleSessionCreated)
	n.dispatcher.Subscribe(events.EventSessionStatusChanged, n.handleSessionStatusChanged)
	n.dispatcher.Subscribe(events.EventAgentAssigned, n.handleAgentAssigned)
	n.dispatcher.Subscribe(events.EventMessageSent, n.handleMessageSent)
}

func (n *NotificationService) handleSessionCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("SessionCreated", zap.String("session_id", event.SessionID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSessionStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("SessionStatusChanged", zap.String("session_id", event.SessionID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAgentAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("AgentAssigned", zap.String("session_id", event.SessionID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleMessageSent(ctx context.Context, event events.Event) error {
	n.logger.Debug("MessageSent", zap.String("session_id", event.SessionID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("session_id", event.SessionID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("session_id", event.SessionID),
		zap.String("event_type", string(event.Type)))
}
