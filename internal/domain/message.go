package domain

import "time"

// SenderType indicates who authored a message.
type SenderType string

const (
	SenderHuman  SenderType = "HUMAN"
	SenderSystem SenderType = "SYSTEM"
)

// Sender is a tagged authorship variant. Human messages carry the
// participant's account id; system messages (welcome, lifecycle notices)
// carry the acting account id plus a label so they are never mistaken for
// a participant's own words.
type Sender struct {
	Type  SenderType
	ID    string
	Label string
}

// HumanSender builds a participant-authored sender.
func HumanSender(accountID string) Sender {
	return Sender{Type: SenderHuman, ID: accountID}
}

// SystemSender builds a system-authored sender acting for accountID.
func SystemSender(accountID, label string) Sender {
	return Sender{Type: SenderSystem, ID: accountID, Label: label}
}

// IsHuman reports whether the message was typed by a participant.
func (s Sender) IsHuman() bool {
	return s.Type == SenderHuman
}

// MessageType tags messages for quick filtering.
type MessageType string

const (
	MessageTypeText MessageType = "TEXT"
	MessageTypeFile MessageType = "FILE"
)

// Attachment references a single stored file. A message carries at most one.
type Attachment struct {
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
}

// Message is one entry in a session transcript. Content and attachment are
// write-once; only IsRead/ReadAt ever change after creation. CreatedAt is
// the sole ordering key within a session, ties broken by ID.
type Message struct {
	ID         string
	SessionID  string
	Sender     Sender
	Content    string
	Attachment *Attachment
	Type       MessageType
	IsRead     bool
	ReadAt     *time.Time
	CreatedAt  time.Time
}

// DeriveMessageType classifies a message by attachment presence.
func DeriveMessageType(attachment *Attachment) MessageType {
	if attachment != nil {
		return MessageTypeFile
	}
	return MessageTypeText
}
