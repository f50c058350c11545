package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chat-service/internal/domain"
)

// SessionFilter captures session listing parameters.
type SessionFilter struct {
	ParticipantID *string
	ChatTypes     []domain.ChatType
	Statuses      []domain.SessionStatus
	// IncludeSupportDesk widens a participant-scoped query to every
	// support-desk session, used for elevated-role inbox listings.
	IncludeSupportDesk bool
	Limit              int
	Offset             int
}

// SessionRepository encapsulates chat session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.ChatSession) error
	Update(ctx context.Context, session *domain.ChatSession) error
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	GetByID(ctx context.Context, id string) (*domain.ChatSession, error)
	FindPeerSession(ctx context.Context, partyA, partyB string) (*domain.ChatSession, error)
	ListWithFilter(ctx context.Context, filter SessionFilter) ([]domain.ChatSession, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository instantiates repository.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

const sessionColumns = `id, chat_type, requester_id, agent_id, party_a_id, party_b_id,
               subject, service_type, status, last_message_at, accepted_at, rejected_at,
               rejection_reason, closed_at, created_at, updated_at`

func (r *sessionRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	const query = `
        INSERT INTO chat_sessions (chat_type, requester_id, agent_id, party_a_id, party_b_id, subject, service_type, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		session.ChatType,
		session.RequesterID,
		session.AgentID,
		session.PartyAID,
		session.PartyBID,
		session.Subject,
		session.ServiceType,
		session.Status,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
}

func (r *sessionRepository) Update(ctx context.Context, session *domain.ChatSession) error {
	const query = `
        UPDATE chat_sessions SET agent_id=$1, subject=$2, service_type=$3, status=$4,
            last_message_at=$5, accepted_at=$6, rejected_at=$7, rejection_reason=$8,
            closed_at=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		session.AgentID,
		session.Subject,
		session.ServiceType,
		session.Status,
		session.LastMessageAt,
		session.AcceptedAt,
		session.RejectedAt,
		session.RejectionReason,
		session.ClosedAt,
		session.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// TouchLastMessage bumps last_message_at only. Advisory sort metadata,
// last-writer-wins under concurrent sends.
func (r *sessionRepository) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE chat_sessions SET last_message_at=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM chat_sessions WHERE id=$1`, sessionColumns)
	var session domain.ChatSession
	if err := scanSession(r.pool.QueryRow(ctx, query, id), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindPeerSession returns the oldest non-terminal peer session between the
// unordered pair, or nil when none exists.
func (r *sessionRepository) FindPeerSession(ctx context.Context, partyA, partyB string) (*domain.ChatSession, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM chat_sessions
        WHERE chat_type=$1
          AND status NOT IN ($2,$3)
          AND ((party_a_id=$4 AND party_b_id=$5) OR (party_a_id=$5 AND party_b_id=$4))
        ORDER BY created_at ASC LIMIT 1`, sessionColumns)
	var session domain.ChatSession
	err := scanSession(r.pool.QueryRow(ctx, query,
		domain.ChatTypePeerToPeer,
		domain.SessionStatusRejected,
		domain.SessionStatusClosed,
		partyA,
		partyB,
	), &session)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) ListWithFilter(ctx context.Context, filter SessionFilter) ([]domain.ChatSession, error) {
	base := fmt.Sprintf(`SELECT %s FROM chat_sessions`, sessionColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ParticipantID != nil {
		args = append(args, *filter.ParticipantID)
		participant := fmt.Sprintf("(requester_id=$%[1]d OR agent_id=$%[1]d OR party_a_id=$%[1]d OR party_b_id=$%[1]d)", len(args))
		if filter.IncludeSupportDesk {
			args = append(args, domain.ChatTypeSupportDesk)
			participant = fmt.Sprintf("(%s OR chat_type=$%d)", participant, len(args))
		}
		clauses = append(clauses, participant)
	}
	if len(filter.ChatTypes) > 0 {
		placeholders := make([]string, len(filter.ChatTypes))
		for i, chatType := range filter.ChatTypes {
			args = append(args, chatType)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("chat_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY last_message_at DESC NULLS LAST, created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner, session *domain.ChatSession) error {
	return row.Scan(
		&session.ID,
		&session.ChatType,
		&session.RequesterID,
		&session.AgentID,
		&session.PartyAID,
		&session.PartyBID,
		&session.Subject,
		&session.ServiceType,
		&session.Status,
		&session.LastMessageAt,
		&session.AcceptedAt,
		&session.RejectedAt,
		&session.RejectionReason,
		&session.ClosedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
}

func scanSessions(rows pgx.Rows) ([]domain.ChatSession, error) {
	var result []domain.ChatSession
	for rows.Next() {
		var session domain.ChatSession
		if err := scanSession(rows, &session); err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}
