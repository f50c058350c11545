package dto

import (
	"time"

	"github.com/spec-kit/chat-service/internal/domain"
)

// CreatePeerSessionRequest payload. The caller is always party A.
type CreatePeerSessionRequest struct {
	PartnerID   string  `json:"partner_id"`
	Subject     string  `json:"subject"`
	ServiceType *string `json:"service_type"`
}

// RejectSessionRequest payload.
type RejectSessionRequest struct {
	Reason string `json:"reason"`
}

// AssignAgentRequest payload. Empty agent_id means self-assign.
type AssignAgentRequest struct {
	AgentID string `json:"agent_id"`
}

// SessionSummary response.
type SessionSummary struct {
	ID            string               `json:"id"`
	ChatType      domain.ChatType      `json:"chat_type"`
	RequesterID   *string              `json:"requester_id,omitempty"`
	AgentID       *string              `json:"agent_id,omitempty"`
	PartyAID      *string              `json:"party_a_id,omitempty"`
	PartyBID      *string              `json:"party_b_id,omitempty"`
	Subject       string               `json:"subject"`
	ServiceType   *string              `json:"service_type,omitempty"`
	Status        domain.SessionStatus `json:"status"`
	LastMessageAt *time.Time           `json:"last_message_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// SessionDetailResponse provides the session with one transcript page.
type SessionDetailResponse struct {
	Session         SessionSummary    `json:"session"`
	AcceptedAt      *time.Time        `json:"accepted_at,omitempty"`
	RejectedAt      *time.Time        `json:"rejected_at,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
	ClosedAt        *time.Time        `json:"closed_at,omitempty"`
	Messages        []MessageResponse `json:"messages"`
	Pagination      PaginationMeta    `json:"pagination"`
}

// PaginationMeta describes the transcript page returned.
type PaginationMeta struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalItems int  `json:"total_items"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}
