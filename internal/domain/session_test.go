package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ref(s string) *string { return &s }

func TestParticipants(t *testing.T) {
	support := &ChatSession{ChatType: ChatTypeSupportDesk, RequesterID: ref("cust"), AgentID: ref("agent")}
	assert.ElementsMatch(t, []string{"cust", "agent"}, support.Participants())

	unassigned := &ChatSession{ChatType: ChatTypeSupportDesk, RequesterID: ref("cust")}
	assert.Equal(t, []string{"cust"}, unassigned.Participants())

	peer := &ChatSession{ChatType: ChatTypePeerToPeer, PartyAID: ref("a"), PartyBID: ref("b")}
	assert.ElementsMatch(t, []string{"a", "b"}, peer.Participants())
}

func TestHasParticipant(t *testing.T) {
	session := &ChatSession{ChatType: ChatTypePeerToPeer, PartyAID: ref("a"), PartyBID: ref("b")}

	assert.True(t, session.HasParticipant("a"))
	assert.True(t, session.HasParticipant("b"))
	assert.False(t, session.HasParticipant("c"))
	assert.False(t, session.HasParticipant(""))
}

func TestIsTerminal(t *testing.T) {
	for status, terminal := range map[SessionStatus]bool{
		SessionStatusOpen:     false,
		SessionStatusPending:  false,
		SessionStatusActive:   false,
		SessionStatusRejected: true,
		SessionStatusClosed:   true,
	} {
		session := &ChatSession{Status: status}
		assert.Equal(t, terminal, session.IsTerminal(), string(status))
	}
}

func TestPeerRoles(t *testing.T) {
	session := &ChatSession{ChatType: ChatTypePeerToPeer, PartyAID: ref("a"), PartyBID: ref("b")}

	assert.Equal(t, "a", session.Initiator())
	assert.Equal(t, "b", session.DesignatedAcceptor())
}

func TestDeriveMessageType(t *testing.T) {
	assert.Equal(t, MessageTypeText, DeriveMessageType(nil))
	assert.Equal(t, MessageTypeFile, DeriveMessageType(&Attachment{FileName: "a.png"}))
}

func TestSenderVariants(t *testing.T) {
	human := HumanSender("user-1")
	assert.Equal(t, SenderHuman, human.Type)
	assert.True(t, human.IsHuman())
	assert.Empty(t, human.Label)

	system := SystemSender("agent-1", "greeting")
	assert.Equal(t, SenderSystem, system.Type)
	assert.False(t, system.IsHuman())
	assert.Equal(t, "agent-1", system.ID)
	assert.Equal(t, "greeting", system.Label)
}

func TestRoleElevated(t *testing.T) {
	assert.False(t, RoleCustomer.Elevated())
	assert.False(t, RoleClient.Elevated())
	assert.True(t, RoleSupport.Elevated())
	assert.True(t, RoleModerator.Elevated())
	assert.True(t, RoleRoot.Elevated())
}
