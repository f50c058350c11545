package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chat-service/internal/domain"
)

// MessageRepository manages session transcript messages.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
	MarkRead(ctx context.Context, sessionID, viewerID string) (int, error)
	UnreadCount(ctx context.Context, sessionIDs []string, viewerID string) (int, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO chat_messages (session_id, sender_type, sender_id, sender_label, content, message_type,
                                   attachment_name, attachment_key, attachment_mime, attachment_size)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at`
	var (
		attachmentName *string
		attachmentKey  *string
		attachmentMime *string
		attachmentSize *int64
	)
	if msg.Attachment != nil {
		attachmentName = &msg.Attachment.FileName
		attachmentKey = &msg.Attachment.StorageKey
		attachmentMime = &msg.Attachment.MimeType
		attachmentSize = &msg.Attachment.SizeBytes
	}
	var senderID *string
	if msg.Sender.ID != "" {
		senderID = &msg.Sender.ID
	}
	var senderLabel *string
	if msg.Sender.Label != "" {
		senderLabel = &msg.Sender.Label
	}
	return r.pool.QueryRow(ctx, query,
		msg.SessionID,
		msg.Sender.Type,
		senderID,
		senderLabel,
		msg.Content,
		msg.Type,
		attachmentName,
		attachmentKey,
		attachmentMime,
		attachmentSize,
	).Scan(&msg.ID, &msg.CreatedAt)
}

// ListBySession returns one page of messages oldest-first. CreatedAt orders
// the transcript, ties broken by id.
func (r *messageRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	const query = `
        SELECT id, session_id, sender_type, sender_id, sender_label, content, message_type,
               attachment_name, attachment_key, attachment_mime, attachment_size,
               is_read, read_at, created_at
        FROM chat_messages WHERE session_id=$1
        ORDER BY created_at ASC, id ASC
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

func (r *messageRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM chat_messages WHERE session_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, sessionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead flips every unread inbound message for the viewer in one
// statement, so repeated or concurrent calls never double-count.
func (r *messageRepository) MarkRead(ctx context.Context, sessionID, viewerID string) (int, error) {
	const query = `
        UPDATE chat_messages SET is_read=TRUE, read_at=NOW()
        WHERE session_id=$1 AND is_read=FALSE AND sender_id IS DISTINCT FROM $2`
	cmd, err := r.pool.Exec(ctx, query, sessionID, viewerID)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, sessionIDs []string, viewerID string) (int, error) {
	if len(sessionIDs) == 0 {
		return 0, nil
	}
	const query = `
        SELECT COUNT(*) FROM chat_messages
        WHERE session_id = ANY($1) AND is_read=FALSE AND sender_id IS DISTINCT FROM $2`
	var count int
	if err := r.pool.QueryRow(ctx, query, sessionIDs, viewerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var result []domain.Message
	for rows.Next() {
		var (
			msg            domain.Message
			senderID       *string
			senderLabel    *string
			attachmentName *string
			attachmentKey  *string
			attachmentMime *string
			attachmentSize *int64
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Sender.Type,
			&senderID,
			&senderLabel,
			&msg.Content,
			&msg.Type,
			&attachmentName,
			&attachmentKey,
			&attachmentMime,
			&attachmentSize,
			&msg.IsRead,
			&msg.ReadAt,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if senderID != nil {
			msg.Sender.ID = *senderID
		}
		if senderLabel != nil {
			msg.Sender.Label = *senderLabel
		}
		if attachmentKey != nil {
			msg.Attachment = &domain.Attachment{StorageKey: *attachmentKey}
			if attachmentName != nil {
				msg.Attachment.FileName = *attachmentName
			}
			if attachmentMime != nil {
				msg.Attachment.MimeType = *attachmentMime
			}
			if attachmentSize != nil {
				msg.Attachment.SizeBytes = *attachmentSize
			}
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
