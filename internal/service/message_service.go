package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/chat-service/internal/access"
	"github.com/spec-kit/chat-service/internal/config"
	"github.com/spec-kit/chat-service/internal/domain"
	"github.com/spec-kit/chat-service/internal/events"
	"github.com/spec-kit/chat-service/internal/repository"
	apperrors "github.com/spec-kit/chat-service/pkg/util"
)

// MessageService validates and delivers messages with bounded retry.
type MessageService struct {
	sessions   repository.SessionRepository
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.ChatConfig
}

// MessageDependencies bundles collaborators for the dispatcher.
type MessageDependencies struct {
	SessionRepo repository.SessionRepository
	MessageRepo repository.MessageRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewMessageService constructs the service.
func NewMessageService(cfg config.ChatConfig, deps MessageDependencies) *MessageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		sessions:   deps.SessionRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// Send validates and persists one message. Persistence is attempted up to
// the configured number of times with exponential backoff, retrying only
// transient faults; exhausted retries surface as DeliveryFailed. On success
// the session's lastMessageAt is bumped after the message write, so a reader
// never observes the metadata without the message.
func (s *MessageService) Send(ctx context.Context, sessionID, senderID string, role domain.Role, content string, attachment *domain.Attachment) (*domain.Message, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session", map[string]any{"session_id": sessionID})
		}
		return nil, apperrors.MapError(err)
	}
	if !access.CanAccess(session, senderID, role) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if session.IsTerminal() {
		return nil, apperrors.NewInvalidState("session no longer accepts messages", map[string]any{"status": session.Status})
	}

	content = strings.TrimSpace(content)
	if content == "" && attachment == nil {
		return nil, apperrors.NewEmptyMessage()
	}
	if attachment != nil {
		if err := s.checkAttachment(attachment); err != nil {
			return nil, err
		}
	}

	msg := &domain.Message{
		SessionID:  session.ID,
		Sender:     domain.HumanSender(senderID),
		Content:    content,
		Attachment: attachment,
		Type:       domain.DeriveMessageType(attachment),
	}

	policy := apperrors.RetryPolicy{
		MaxAttempts: s.cfg.SendMaxAttempts,
		BaseDelay:   s.cfg.SendBackoffBase(),
		Retriable:   apperrors.IsTransient,
	}
	err = apperrors.Retry(ctx, policy, func(ctx context.Context) error {
		return s.messages.Create(ctx, msg)
	})
	if err != nil {
		if !apperrors.IsTransient(err) {
			return nil, apperrors.MapError(err)
		}
		return nil, apperrors.NewDeliveryFailed(err)
	}

	// Advisory sort metadata; last-writer-wins under concurrent sends.
	if err := s.sessions.TouchLastMessage(ctx, session.ID, msg.CreatedAt); err != nil {
		s.logger.Warn("touch last message", zap.String("session_id", session.ID), zap.Error(err))
	}

	s.publishMessageSent(ctx, session.ID, msg, role)
	return msg, nil
}

func (s *MessageService) checkAttachment(attachment *domain.Attachment) error {
	if s.cfg.AttachmentMaxBytes > 0 && attachment.SizeBytes > s.cfg.AttachmentMaxBytes {
		return apperrors.NewAttachmentRejected("attachment exceeds size ceiling", map[string]any{
			"size_bytes": attachment.SizeBytes,
			"max_bytes":  s.cfg.AttachmentMaxBytes,
		})
	}
	if len(s.cfg.AttachmentMimeTypes) > 0 {
		mime := strings.ToLower(strings.TrimSpace(attachment.MimeType))
		allowed := false
		for _, candidate := range s.cfg.AttachmentMimeTypes {
			if strings.EqualFold(candidate, mime) {
				allowed = true
				break
			}
		}
		if !allowed {
			return apperrors.NewAttachmentRejected("attachment type not allowed", map[string]any{
				"mime_type": attachment.MimeType,
			})
		}
	}
	return nil
}

func (s *MessageService) publishMessageSent(ctx context.Context, sessionID string, msg *domain.Message, role domain.Role) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventMessageSent,
		SessionID: sessionID,
		Actor:     events.Actor{ID: msg.Sender.ID, Role: role},
		Timestamp: msg.CreatedAt,
		Payload: events.MessageSentPayload{
			MessageID:   msg.ID,
			SenderType:  msg.Sender.Type,
			SenderID:    msg.Sender.ID,
			MessageType: msg.Type,
			Preview:     stringPreview(msg.Content, 120),
			CreatedAt:   msg.CreatedAt,
		},
	})
}
