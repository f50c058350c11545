package service

import (
	"context"
	"errors"
	"strings"
	"time"

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

// SessionService owns the session lifecycle and its invariants.
type SessionService struct {
	sessions   repository.SessionRepository
	messages   repository.MessageRepository
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.ChatConfig
}

// SessionDependencies bundles collaborators for the session service.
type SessionDependencies struct {
	SessionRepo repository.SessionRepository
	MessageRepo repository.MessageRepository
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// Pagination describes one transcript page.
type Pagination struct {
	Page       int
	PerPage    int
	TotalItems int
	TotalPages int
	HasMore    bool
}

// NewSessionService constructs the service.
func NewSessionService(cfg config.ChatConfig, deps SessionDependencies) *SessionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:   deps.SessionRepo,
		messages:   deps.MessageRepo,
		accounts:   deps.AccountRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

var allowedTransitions = map[domain.SessionStatus][]domain.SessionStatus{
	domain.SessionStatusOpen:     {domain.SessionStatusActive, domain.SessionStatusClosed},
	domain.SessionStatusPending:  {domain.SessionStatusActive, domain.SessionStatusRejected, domain.SessionStatusClosed},
	domain.SessionStatusActive:   {domain.SessionStatusClosed},
	domain.SessionStatusRejected: {},
	domain.SessionStatusClosed:   {},
}

func isValidTransition(current, next domain.SessionStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// CreateSupportSession opens a support-desk thread for the requester and
// emits a best-effort welcome message from the resolved support identity.
func (s *SessionService) CreateSupportSession(ctx context.Context, requesterID string) (*domain.ChatSession, error) {
	if strings.TrimSpace(requesterID) == "" {
		return nil, apperrors.NewValidationError("requester id required", nil)
	}

	session := &domain.ChatSession{
		ChatType:    domain.ChatTypeSupportDesk,
		RequesterID: &requesterID,
		Subject:     domain.DefaultSubject,
		Status:      domain.SessionStatusOpen,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventSessionCreated,
		SessionID: session.ID,
		Actor:     events.Actor{ID: requesterID},
		Payload:   sessionCreatedPayload(session),
	})

	// Welcome failure must never fail session creation.
	if identity, err := s.resolveSupportIdentity(ctx); err != nil {
		s.logger.Warn("resolve support identity", zap.String("session_id", session.ID), zap.Error(err))
	} else if identity != nil {
		s.emitSystemMessage(ctx, session,
			domain.SystemSender(identity.ID, "welcome"),
			"Welcome! A support agent will be with you shortly.")
	}
	return session, nil
}

// CreatePeerSession opens a peer thread, reusing any existing non-terminal
// session between the unordered pair.
func (s *SessionService) CreatePeerSession(ctx context.Context, partyAID, partyBID, subject string, serviceType *string) (*domain.ChatSession, error) {
	partyAID = strings.TrimSpace(partyAID)
	partyBID = strings.TrimSpace(partyBID)
	if partyAID == "" || partyBID == "" {
		return nil, apperrors.NewValidationError("both parties required", nil)
	}
	if partyAID == partyBID {
		return nil, apperrors.NewValidationError("parties must differ", nil)
	}

	existing, err := s.sessions.FindPeerSession(ctx, partyAID, partyBID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if existing != nil {
		return existing, nil
	}

	if strings.TrimSpace(subject) == "" {
		subject = domain.DefaultSubject
	}
	session := &domain.ChatSession{
		ChatType:    domain.ChatTypePeerToPeer,
		PartyAID:    &partyAID,
		PartyBID:    &partyBID,
		Subject:     strings.TrimSpace(subject),
		ServiceType: serviceType,
		Status:      domain.SessionStatusPending,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventSessionCreated,
		SessionID: session.ID,
		Actor:     events.Actor{ID: partyAID},
		Payload:   sessionCreatedPayload(session),
	})
	return session, nil
}

// AcceptPeerRequest moves a pending peer session to active. Only the
// designated acceptor (the party who did not initiate) may accept.
func (s *SessionService) AcceptPeerRequest(ctx context.Context, sessionID, accepterID string) (*domain.ChatSession, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusPending {
		return nil, apperrors.NewInvalidState("session is not pending", map[string]any{"status": session.Status})
	}
	if session.DesignatedAcceptor() != accepterID {
		return nil, apperrors.NewForbidden("only the requested party may accept")
	}

	now := time.Now()
	oldStatus := session.Status
	session.Status = domain.SessionStatusActive
	session.AcceptedAt = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, session, accepterID, oldStatus, "accepted")
	s.emitSystemMessage(ctx, session,
		domain.SystemSender(accepterID, "accepted"),
		"Conversation request accepted.")
	return session, nil
}

// RejectPeerRequest moves a pending peer session to its terminal rejected
// state, recording the optional reason.
func (s *SessionService) RejectPeerRequest(ctx context.Context, sessionID, rejecterID, reason string) (*domain.ChatSession, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusPending {
		return nil, apperrors.NewInvalidState("session is not pending", map[string]any{"status": session.Status})
	}
	if session.DesignatedAcceptor() != rejecterID {
		return nil, apperrors.NewForbidden("only the requested party may reject")
	}

	now := time.Now()
	oldStatus := session.Status
	session.Status = domain.SessionStatusRejected
	session.RejectedAt = &now
	reason = strings.TrimSpace(reason)
	if reason != "" {
		session.RejectionReason = &reason
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, session, rejecterID, oldStatus, reason)
	content := "Conversation request rejected."
	if reason != "" {
		content = "Conversation request rejected: " + reason
	}
	s.emitSystemMessage(ctx, session, domain.SystemSender(rejecterID, "rejected"), content)
	return session, nil
}

// AssignAgent sets the agent on a support-desk session and activates it,
// emitting a greeting from the agent.
func (s *SessionService) AssignAgent(ctx context.Context, sessionID, agentID string) (*domain.ChatSession, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, apperrors.NewValidationError("agent id required", nil)
	}
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ChatType != domain.ChatTypeSupportDesk {
		return nil, apperrors.NewInvalidState("agents are assigned to support sessions only", map[string]any{"chat_type": session.ChatType})
	}
	if session.Status != domain.SessionStatusOpen && session.Status != domain.SessionStatusActive {
		return nil, apperrors.NewInvalidState("session does not accept an agent", map[string]any{"status": session.Status})
	}

	oldStatus := session.Status
	session.AgentID = &agentID
	session.Status = domain.SessionStatusActive
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventAgentAssigned,
		SessionID: session.ID,
		Actor:     events.Actor{ID: agentID},
		Payload:   events.AgentAssignedPayload{AgentID: agentID},
	})
	if oldStatus != session.Status {
		s.publishStatusChange(ctx, session, agentID, oldStatus, "agent_assigned")
	}
	s.emitSystemMessage(ctx, session,
		domain.SystemSender(agentID, "greeting"),
		"An agent has joined the conversation.")
	return session, nil
}

// CloseSession closes a non-terminal session. Closing an already-closed
// session is a no-op success; a rejected session cannot be closed.
func (s *SessionService) CloseSession(ctx context.Context, sessionID, callerID string, role domain.Role) (*domain.ChatSession, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccess(session, callerID, role) {
		return nil, apperrors.NewForbidden("access denied")
	}
	if session.Status == domain.SessionStatusClosed {
		return session, nil
	}
	if !isValidTransition(session.Status, domain.SessionStatusClosed) {
		return nil, apperrors.NewInvalidState("session cannot be closed", map[string]any{"status": session.Status})
	}

	now := time.Now()
	oldStatus := session.Status
	session.Status = domain.SessionStatusClosed
	session.ClosedAt = &now
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishStatusChange(ctx, session, callerID, oldStatus, "closed")
	return session, nil
}

// GetSession returns the session with one transcript page, oldest-first.
// Page is 1-based; perPage falls back to the configured default and is
// capped to protect the store.
func (s *SessionService) GetSession(ctx context.Context, sessionID, callerID string, role domain.Role, page, perPage int) (*domain.ChatSession, []domain.Message, Pagination, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, nil, Pagination{}, err
	}
	if !access.CanAccess(session, callerID, role) {
		return nil, nil, Pagination{}, apperrors.NewForbidden("access denied")
	}

	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = s.cfg.PageSizeDefault
	}
	if s.cfg.PageSizeMax > 0 && perPage > s.cfg.PageSizeMax {
		perPage = s.cfg.PageSizeMax
	}

	total, err := s.messages.CountBySession(ctx, session.ID)
	if err != nil {
		return nil, nil, Pagination{}, apperrors.MapError(err)
	}
	msgs, err := s.messages.ListBySession(ctx, session.ID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, Pagination{}, apperrors.MapError(err)
	}

	totalPages := (total + perPage - 1) / perPage
	pagination := Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
		HasMore:    page < totalPages,
	}
	return session, msgs, pagination, nil
}

// ListSessions returns the caller's inbox, newest activity first. Elevated
// roles additionally see every support-desk session.
func (s *SessionService) ListSessions(ctx context.Context, userID string, role domain.Role, statuses []domain.SessionStatus, chatTypes []domain.ChatType) ([]domain.ChatSession, error) {
	filter := repository.SessionFilter{
		ParticipantID:      &userID,
		Statuses:           statuses,
		ChatTypes:          chatTypes,
		IncludeSupportDesk: role.Elevated(),
	}
	sessions, err := s.sessions.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sessions, nil
}

// resolveSupportIdentity picks the account that adopts the bot persona:
// the reserved well-known account first, then the earliest-created elevated
// account. Nil when no candidate exists.
func (s *SessionService) resolveSupportIdentity(ctx context.Context) (*domain.Account, error) {
	account, err := s.accounts.GetByName(ctx, s.cfg.SupportAccountName)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return s.accounts.FirstByRoles(ctx, domain.ElevatedRoles)
}

func (s *SessionService) getSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("session", map[string]any{"session_id": sessionID})
		}
		return nil, apperrors.MapError(err)
	}
	return session, nil
}

// emitSystemMessage persists a courtesy message and bumps lastMessageAt.
// Failures are logged and swallowed; the surrounding operation already
// succeeded.
func (s *SessionService) emitSystemMessage(ctx context.Context, session *domain.ChatSession, sender domain.Sender, content string) {
	msg := &domain.Message{
		SessionID: session.ID,
		Sender:    sender,
		Content:   content,
		Type:      domain.MessageTypeText,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		s.logger.Warn("emit system message",
			zap.String("session_id", session.ID),
			zap.String("label", sender.Label),
			zap.Error(err))
		return
	}
	if err := s.sessions.TouchLastMessage(ctx, session.ID, msg.CreatedAt); err != nil {
		s.logger.Warn("touch last message", zap.String("session_id", session.ID), zap.Error(err))
	}
	session.LastMessageAt = &msg.CreatedAt

	s.publishEvent(ctx, events.Event{
		Type:      events.EventMessageSent,
		SessionID: session.ID,
		Actor:     events.Actor{ID: sender.ID},
		Payload: events.MessageSentPayload{
			MessageID:   msg.ID,
			SenderType:  sender.Type,
			SenderID:    sender.ID,
			MessageType: msg.Type,
			Preview:     stringPreview(msg.Content, 120),
			CreatedAt:   msg.CreatedAt,
		},
	})
}

func (s *SessionService) publishStatusChange(ctx context.Context, session *domain.ChatSession, actorID string, oldStatus domain.SessionStatus, reason string) {
	s.publishEvent(ctx, events.Event{
		Type:      events.EventSessionStatusChanged,
		SessionID: session.ID,
		Actor:     events.Actor{ID: actorID},
		Payload: events.SessionStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: session.Status,
			Reason:    reason,
		},
	})
}

func (s *SessionService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func sessionCreatedPayload(session *domain.ChatSession) events.SessionCreatedPayload {
	return events.SessionCreatedPayload{
		ChatType:     session.ChatType,
		Status:       session.Status,
		Participants: session.Participants(),
		Subject:      session.Subject,
		ServiceType:  session.ServiceType,
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
