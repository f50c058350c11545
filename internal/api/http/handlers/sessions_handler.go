package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-service/internal/api/dto"
	"github.com/spec-kit/chat-service/internal/auth"
	"github.com/spec-kit/chat-service/internal/domain"
	"github.com/spec-kit/chat-service/internal/service"
	apperrors "github.com/spec-kit/chat-service/pkg/util"
)

// SessionsHandler manages session lifecycle endpoints.
type SessionsHandler struct {
	sessions *service.SessionService
}

// NewSessionsHandler constructs handler.
func NewSessionsHandler(sessionService *service.SessionService) *SessionsHandler {
	return &SessionsHandler{sessions: sessionService}
}

// CreateSupportSession POST /sessions/support.
func (h *SessionsHandler) CreateSupportSession(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	session, err := h.sessions.CreateSupportSession(c.Context(), principal.ID())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionSummary(session)})
}

// CreatePeerSession POST /sessions/peer. The caller is party A.
func (h *SessionsHandler) CreatePeerSession(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.CreatePeerSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PartnerID == "" {
		return apperrors.NewValidationError("partner_id required", nil)
	}
	session, err := h.sessions.CreatePeerSession(c.Context(), principal.ID(), req.PartnerID, req.Subject, req.ServiceType)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionSummary(session)})
}

// AcceptPeerRequest POST /sessions/:id/accept.
func (h *SessionsHandler) AcceptPeerRequest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	session, err := h.sessions.AcceptPeerRequest(c.Context(), c.Params("id"), principal.ID())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionSummary(session)})
}

// RejectPeerRequest POST /sessions/:id/reject.
func (h *SessionsHandler) RejectPeerRequest(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.RejectSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.sessions.RejectPeerRequest(c.Context(), c.Params("id"), principal.ID(), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionSummary(session)})
}

// AssignAgent POST /sessions/:id/agent (elevated roles only).
func (h *SessionsHandler) AssignAgent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.AssignAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agentID := req.AgentID
	if agentID == "" {
		agentID = principal.ID()
	}
	session, err := h.sessions.AssignAgent(c.Context(), c.Params("id"), agentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionSummary(session)})
}

// CloseSession POST /sessions/:id/close.
func (h *SessionsHandler) CloseSession(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	session, err := h.sessions.CloseSession(c.Context(), c.Params("id"), principal.ID(), principal.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionSummary(session)})
}

// GetSession GET /sessions/:id?page=&per_page=.
func (h *SessionsHandler) GetSession(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "per_page", 0)
	session, msgs, pagination, err := h.sessions.GetSession(c.Context(), c.Params("id"), principal.ID(), principal.Role, page, perPage)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionDetail(session, msgs, pagination)})
}

// ListSessions GET /sessions.
func (h *SessionsHandler) ListSessions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	sessions, err := h.sessions.ListSessions(c.Context(), principal.ID(), principal.Role, parseStatuses(c), parseChatTypes(c))
	if err != nil {
		return err
	}
	items := make([]dto.SessionSummary, 0, len(sessions))
	for i := range sessions {
		items = append(items, sessionSummary(&sessions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseStatuses(c *fiber.Ctx) []domain.SessionStatus {
	var statuses []domain.SessionStatus
	for _, raw := range splitQuery(c.Query("status")) {
		statuses = append(statuses, domain.SessionStatus(raw))
	}
	return statuses
}

func parseChatTypes(c *fiber.Ctx) []domain.ChatType {
	var chatTypes []domain.ChatType
	for _, raw := range splitQuery(c.Query("chat_type")) {
		chatTypes = append(chatTypes, domain.ChatType(raw))
	}
	return chatTypes
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func sessionSummary(session *domain.ChatSession) dto.SessionSummary {
	return dto.SessionSummary{
		ID:            session.ID,
		ChatType:      session.ChatType,
		RequesterID:   session.RequesterID,
		AgentID:       session.AgentID,
		PartyAID:      session.PartyAID,
		PartyBID:      session.PartyBID,
		Subject:       session.Subject,
		ServiceType:   session.ServiceType,
		Status:        session.Status,
		LastMessageAt: session.LastMessageAt,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
	}
}

func sessionDetail(session *domain.ChatSession, msgs []domain.Message, pagination service.Pagination) dto.SessionDetailResponse {
	messages := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		messages = append(messages, messageResponse(&msgs[i]))
	}
	return dto.SessionDetailResponse{
		Session:         sessionSummary(session),
		AcceptedAt:      session.AcceptedAt,
		RejectedAt:      session.RejectedAt,
		RejectionReason: session.RejectionReason,
		ClosedAt:        session.ClosedAt,
		Messages:        messages,
		Pagination: dto.PaginationMeta{
			Page:       pagination.Page,
			PerPage:    pagination.PerPage,
			TotalItems: pagination.TotalItems,
			TotalPages: pagination.TotalPages,
			HasMore:    pagination.HasMore,
		},
	}
}
