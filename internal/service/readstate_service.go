package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/chat-service/internal/access"
	"github.com/spec-kit/chat-service/internal/domain"
	"github.com/spec-kit/chat-service/internal/events"
	"github.com/spec-kit/chat-service/internal/repository"
	apperrors "github.com/spec-kit/chat-service/pkg/util"
)

// ReadStateService marks inbound messages read and computes unread counts.
type ReadStateService struct {
	sessions   repository.SessionRepository
	messages   repository.MessageRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// ReadStateDependencies bundles collaborators for the tracker.
type ReadStateDependencies struct {
	SessionRepo repository.SessionRepository
	MessageRepo repository.MessageRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewReadStateService constructs the service.
func NewReadStateService(deps ReadStateDependencies) *ReadStateService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadStateService{
		sessions:   deps.SessionRepo,
		messages:   deps.MessageRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// MarkRead flips every unread inbound message for the viewer and returns
// how many were updated. Idempotent: a repeat call returns 0 and concurrent
// calls never double-count.
func (s *ReadStateService) MarkRead(ctx context.Context, sessionID, viewerID string, role domain.Role) (int, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.NewNotFound("session", map[string]any{"session_id": sessionID})
		}
		return 0, apperrors.MapError(err)
	}
	if !access.CanAccess(session, viewerID, role) {
		return 0, apperrors.NewForbidden("access denied")
	}

	count, err := s.messages.MarkRead(ctx, sessionID, viewerID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if count > 0 && s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventMessagesRead,
			SessionID: sessionID,
			Actor:     events.Actor{ID: viewerID, Role: role},
			Payload:   events.MessagesReadPayload{ViewerID: viewerID, Count: count},
		})
	}
	return count, nil
}

// UnreadCount aggregates unread inbound messages across every session the
// viewer can access. Zero owned sessions yields 0, not an error.
func (s *ReadStateService) UnreadCount(ctx context.Context, viewerID string, role domain.Role) (int, error) {
	filter := repository.SessionFilter{
		ParticipantID:      &viewerID,
		IncludeSupportDesk: role.Elevated(),
		Limit:              unreadSessionScanLimit,
	}
	sessions, err := s.sessions.ListWithFilter(ctx, filter)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	ids := make([]string, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].ID
	}
	count, err := s.messages.UnreadCount(ctx, ids, viewerID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// unreadSessionScanLimit bounds the inbox scan backing a badge count.
const unreadSessionScanLimit = 1000
