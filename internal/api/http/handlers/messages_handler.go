package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-service/internal/api/dto"
	"github.com/spec-kit/chat-service/internal/auth"
	"github.com/spec-kit/chat-service/internal/domain"
	"github.com/spec-kit/chat-service/internal/service"
	apperrors "github.com/spec-kit/chat-service/pkg/util"
)

// MessagesHandler manages message send and read-state endpoints.
type MessagesHandler struct {
	messages  *service.MessageService
	readState *service.ReadStateService
}

// NewMessagesHandler constructs handler.
func NewMessagesHandler(messageService *service.MessageService, readStateService *service.ReadStateService) *MessagesHandler {
	return &MessagesHandler{messages: messageService, readState: readStateService}
}

// Send POST /sessions/:id/messages.
func (h *MessagesHandler) Send(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	var attachment *domain.Attachment
	if req.Attachment != nil {
		attachment = &domain.Attachment{
			FileName:   req.Attachment.FileName,
			StorageKey: req.Attachment.StorageKey,
			MimeType:   req.Attachment.MimeType,
			SizeBytes:  req.Attachment.SizeBytes,
		}
	}
	msg, err := h.messages.Send(c.Context(), c.Params("id"), principal.ID(), principal.Role, req.Content, attachment)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":   messageResponse(msg),
		"status": dto.DeliverySent,
	})
}

// MarkRead POST /sessions/:id/read.
func (h *MessagesHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	updated, err := h.readState.MarkRead(c.Context(), c.Params("id"), principal.ID(), principal.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MarkReadResponse{Updated: updated}})
}

// UnreadCount GET /messages/unread-count.
func (h *MessagesHandler) UnreadCount(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("caller required")
	}
	unread, err := h.readState.UnreadCount(c.Context(), principal.ID(), principal.Role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{Unread: unread}})
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	resp := dto.MessageResponse{
		ID:          msg.ID,
		SessionID:   msg.SessionID,
		SenderType:  msg.Sender.Type,
		SenderID:    msg.Sender.ID,
		SenderLabel: msg.Sender.Label,
		Content:     msg.Content,
		MessageType: msg.Type,
		IsRead:      msg.IsRead,
		ReadAt:      msg.ReadAt,
		CreatedAt:   msg.CreatedAt,
	}
	if msg.Attachment != nil {
		resp.Attachment = &dto.AttachmentResponse{
			FileName:   msg.Attachment.FileName,
			StorageKey: msg.Attachment.StorageKey,
			MimeType:   msg.Attachment.MimeType,
			SizeBytes:  msg.Attachment.SizeBytes,
		}
	}
	return resp
}

func splitQuery(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
