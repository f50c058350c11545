package dto

import (
	"time"

	"github.com/spec-kit/chat-service/internal/domain"
)

// DeliveryStatus is the client-local send indicator. Only "sent" is ever
// authoritative; "sending" and "failed" drive the caller's retry UI.
type DeliveryStatus string

const (
	DeliverySending DeliveryStatus = "sending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// SendMessageRequest payload.
type SendMessageRequest struct {
	Content    string             `json:"content"`
	Attachment *AttachmentRequest `json:"attachment,omitempty"`
}

// AttachmentRequest describes the single optional attachment.
type AttachmentRequest struct {
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// MessageResponse represents one transcript entry.
type MessageResponse struct {
	ID          string              `json:"id"`
	SessionID   string              `json:"session_id"`
	SenderType  domain.SenderType   `json:"sender_type"`
	SenderID    string              `json:"sender_id,omitempty"`
	SenderLabel string              `json:"sender_label,omitempty"`
	Content     string              `json:"content"`
	MessageType domain.MessageType  `json:"message_type"`
	Attachment  *AttachmentResponse `json:"attachment,omitempty"`
	IsRead      bool                `json:"is_read"`
	ReadAt      *time.Time          `json:"read_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// MarkReadResponse reports how many messages were flipped.
type MarkReadResponse struct {
	Updated int `json:"updated"`
}

// UnreadCountResponse carries the viewer's aggregate badge count.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
