package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/chat-service/internal/domain"
	"github.com/spec-kit/chat-service/internal/events"
	apperrors "github.com/spec-kit/chat-service/pkg/util"
)

type readStateFixture struct {
	service    *ReadStateService
	sessions   *fakeSessionRepo
	messages   *fakeMessageRepo
	dispatcher *recordingDispatcher
}

func newReadStateFixture() *readStateFixture {
	f := &readStateFixture{
		sessions:   newFakeSessionRepo(),
		messages:   newFakeMessageRepo(),
		dispatcher: &recordingDispatcher{},
	}
	f.service = NewReadStateService(ReadStateDependencies{
		SessionRepo: f.sessions,
		MessageRepo: f.messages,
		Dispatcher:  f.dispatcher,
	})
	return f
}

func (f *readStateFixture) seedSession(t *testing.T, partyA, partyB string) *domain.ChatSession {
	t.Helper()
	session := &domain.ChatSession{
		ChatType: domain.ChatTypePeerToPeer,
		PartyAID: strPtr(partyA),
		PartyBID: strPtr(partyB),
		Status:   domain.SessionStatusActive,
	}
	require.NoError(t, f.sessions.Create(context.Background(), session))
	return session
}

func (f *readStateFixture) seedMessage(t *testing.T, sessionID, senderID string) {
	t.Helper()
	require.NoError(t, f.messages.Create(context.Background(), &domain.Message{
		SessionID: sessionID,
		Sender:    domain.HumanSender(senderID),
		Content:   "hello",
		Type:      domain.MessageTypeText,
	}))
}

func TestMarkReadFlipsInboundOnly(t *testing.T) {
	f := newReadStateFixture()
	session := f.seedSession(t, "a", "b")
	f.seedMessage(t, session.ID, "a")
	f.seedMessage(t, session.ID, "a")
	f.seedMessage(t, session.ID, "b")

	count, err := f.service.MarkRead(context.Background(), session.ID, "b", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, msg := range f.messages.bySession(session.ID) {
		if msg.Sender.ID == "a" {
			assert.True(t, msg.IsRead)
			assert.NotNil(t, msg.ReadAt)
		} else {
			assert.False(t, msg.IsRead)
		}
	}

	read := f.dispatcher.byType(events.EventMessagesRead)
	require.Len(t, read, 1)
	payload := read[0].Payload.(events.MessagesReadPayload)
	assert.Equal(t, "b", payload.ViewerID)
	assert.Equal(t, 2, payload.Count)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newReadStateFixture()
	session := f.seedSession(t, "a", "b")
	f.seedMessage(t, session.ID, "a")

	first, err := f.service.MarkRead(context.Background(), session.ID, "b", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := f.service.MarkRead(context.Background(), session.ID, "b", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Zero(t, second)

	// No event for a no-op repeat.
	assert.Len(t, f.dispatcher.byType(events.EventMessagesRead), 1)
}

func TestMarkReadAccessControl(t *testing.T) {
	f := newReadStateFixture()
	session := f.seedSession(t, "a", "b")

	_, err := f.service.MarkRead(context.Background(), session.ID, "stranger", domain.RoleCustomer)
	requireDomainCode(t, err, apperrors.CodeForbidden)
}

func TestMarkReadSessionNotFound(t *testing.T) {
	f := newReadStateFixture()

	_, err := f.service.MarkRead(context.Background(), "missing", "a", domain.RoleCustomer)
	requireDomainCode(t, err, apperrors.CodeNotFound)
}

func TestUnreadCountAggregatesAcrossSessions(t *testing.T) {
	f := newReadStateFixture()
	first := f.seedSession(t, "a", "b")
	second := f.seedSession(t, "c", "b")
	foreign := f.seedSession(t, "x", "y")

	f.seedMessage(t, first.ID, "a")
	f.seedMessage(t, first.ID, "b")
	f.seedMessage(t, second.ID, "c")
	f.seedMessage(t, second.ID, "c")
	f.seedMessage(t, foreign.ID, "x")

	count, err := f.service.UnreadCount(context.Background(), "b", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestUnreadCountZeroSessions(t *testing.T) {
	f := newReadStateFixture()

	count, err := f.service.UnreadCount(context.Background(), "nobody", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUnreadCountDropsToZeroAfterMarkRead(t *testing.T) {
	f := newReadStateFixture()
	session := f.seedSession(t, "a", "b")
	f.seedMessage(t, session.ID, "a")

	count, err := f.service.UnreadCount(context.Background(), "b", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = f.service.MarkRead(context.Background(), session.ID, "b", domain.RoleCustomer)
	require.NoError(t, err)

	count, err = f.service.UnreadCount(context.Background(), "b", domain.RoleCustomer)
	require.NoError(t, err)
	assert.Zero(t, count)
}
