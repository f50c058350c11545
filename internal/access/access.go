// Package access decides whether a caller may read or write a session.
// Every mutating operation calls CanAccess before proceeding and fails
// closed on no match.
package access

import "github.com/spec-kit/chat-service/internal/domain"

// CanAccess evaluates, in order: elevated roles always pass (including peer
// sessions, a deliberate support-escalation exception), then participants,
// then deny. Pure, no side effects.
func CanAccess(session *domain.ChatSession, callerID string, role domain.Role) bool {
	if role.Elevated() {
		return true
	}
	if session == nil || callerID == "" {
		return false
	}
	return session.HasParticipant(callerID)
}
