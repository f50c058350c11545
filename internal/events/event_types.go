package events

import (
	"time"

	"github.com/spec-kit/chat-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionCreated       EventType = "session_created"
	EventSessionStatusChanged EventType = "session_status_changed"
	EventAgentAssigned        EventType = "agent_assigned"
	EventMessageSent          EventType = "message_sent"
	EventMessagesRead         EventType = "messages_read"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Role domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionCreatedPayload payload.
type SessionCreatedPayload struct {
	ChatType     domain.ChatType      `json:"chat_type"`
	Status       domain.SessionStatus `json:"status"`
	Participants []string             `json:"participants"`
	Subject      string               `json:"subject"`
	ServiceType  *string              `json:"service_type,omitempty"`
}

// SessionStatusChangedPayload payload.
type SessionStatusChangedPayload struct {
	OldStatus domain.SessionStatus `json:"old_status"`
	NewStatus domain.SessionStatus `json:"new_status"`
	Reason    string               `json:"reason,omitempty"`
}

// AgentAssignedPayload payload.
type AgentAssignedPayload struct {
	AgentID string `json:"agent_id"`
}

// MessageSentPayload payload.
type MessageSentPayload struct {
	MessageID   string             `json:"message_id"`
	SenderType  domain.SenderType  `json:"sender_type"`
	SenderID    string             `json:"sender_id,omitempty"`
	MessageType domain.MessageType `json:"message_type"`
	Preview     string             `json:"preview"`
	CreatedAt   time.Time          `json:"created_at"`
}

// MessagesReadPayload payload.
type MessagesReadPayload struct {
	ViewerID string `json:"viewer_id"`
	Count    int    `json:"count"`
}
