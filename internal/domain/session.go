package domain

import "time"

// ChatType distinguishes the two conversation shapes.
type ChatType string

const (
	ChatTypeSupportDesk ChatType = "SUPPORT_DESK"
	ChatTypePeerToPeer  ChatType = "PEER_TO_PEER"
)

// SessionStatus enumerates lifecycle states for chat sessions.
type SessionStatus string

const (
	SessionStatusOpen     SessionStatus = "OPEN"
	SessionStatusPending  SessionStatus = "PENDING"
	SessionStatusActive   SessionStatus = "ACTIVE"
	SessionStatusRejected SessionStatus = "REJECTED"
	SessionStatusClosed   SessionStatus = "CLOSED"
)

// DefaultSubject labels sessions created without an explicit topic.
const DefaultSubject = "General Inquiry"

// ChatSession is the aggregate for a conversation thread.
//
// Exactly one participant pair is populated, matching ChatType:
// Requester/Agent for support-desk threads, PartyA/PartyB for peer threads.
// Participant identities are immutable after creation; reassigning an agent
// changes AgentID but never RequesterID.
type ChatSession struct {
	ID              string
	ChatType        ChatType
	RequesterID     *string
	AgentID         *string
	PartyAID        *string
	PartyBID        *string
	Subject         string
	ServiceType     *string
	Status          SessionStatus
	LastMessageAt   *time.Time
	AcceptedAt      *time.Time
	RejectedAt      *time.Time
	RejectionReason *string
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Participants returns every populated participant id on the session.
func (s *ChatSession) Participants() []string {
	ids := make([]string, 0, 2)
	for _, ref := range []*string{s.RequesterID, s.AgentID, s.PartyAID, s.PartyBID} {
		if ref != nil && *ref != "" {
			ids = append(ids, *ref)
		}
	}
	return ids
}

// HasParticipant reports whether id names a participant on the session.
func (s *ChatSession) HasParticipant(id string) bool {
	if id == "" {
		return false
	}
	for _, participant := range s.Participants() {
		if participant == id {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the session permits no further transitions.
func (s *ChatSession) IsTerminal() bool {
	return s.Status == SessionStatusRejected || s.Status == SessionStatusClosed
}

// Initiator returns the party that opened a peer session (fixed at creation).
func (s *ChatSession) Initiator() string {
	if s.PartyAID != nil {
		return *s.PartyAID
	}
	return ""
}

// DesignatedAcceptor returns the peer who may accept or reject the request.
func (s *ChatSession) DesignatedAcceptor() string {
	if s.PartyBID != nil {
		return *s.PartyBID
	}
	return ""
}
