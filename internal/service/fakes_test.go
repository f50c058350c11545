package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/chat-service/internal/domain"
	"github.com/spec-kit/chat-service/internal/events"
	"github.com/spec-kit/chat-service/internal/repository"
)

func strPtr(s string) *string { return &s }

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.ChatSession
	nextID   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.ChatSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	session.ID = fmt.Sprintf("session-%d", r.nextID)
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return pgx.ErrNoRows
	}
	session.UpdatedAt = time.Now()
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *fakeSessionRepo) TouchLastMessage(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	session.LastMessageAt = &at
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *session
	return &clone, nil
}

func (r *fakeSessionRepo) FindPeerSession(_ context.Context, partyA, partyB string) (*domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.ChatType != domain.ChatTypePeerToPeer || session.IsTerminal() {
			continue
		}
		if session.HasParticipant(partyA) && session.HasParticipant(partyB) {
			clone := *session
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) ListWithFilter(_ context.Context, filter repository.SessionFilter) ([]domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatSession
	for _, session := range r.sessions {
		if filter.ParticipantID != nil {
			member := session.HasParticipant(*filter.ParticipantID)
			if filter.IncludeSupportDesk && session.ChatType == domain.ChatTypeSupportDesk {
				member = true
			}
			if !member {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, session.Status) {
			continue
		}
		if len(filter.ChatTypes) > 0 && !containsChatType(filter.ChatTypes, session.ChatType) {
			continue
		}
		out = append(out, *session)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsStatus(list []domain.SessionStatus, s domain.SessionStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsChatType(list []domain.ChatType, c domain.ChatType) bool {
	for _, candidate := range list {
		if candidate == c {
			return true
		}
	}
	return false
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []domain.Message
	nextID   int

	// createFailures injected by tests: each Create pops one error until
	// the queue drains.
	createFailures []error
	createCalls    int
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if len(r.createFailures) > 0 {
		err := r.createFailures[0]
		r.createFailures = r.createFailures[1:]
		return err
	}
	r.nextID++
	msg.ID = fmt.Sprintf("message-%d", r.nextID)
	msg.CreatedAt = time.Now()
	r.messages = append(r.messages, *msg)
	return nil
}

func (r *fakeMessageRepo) ListBySession(_ context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Message
	for _, msg := range r.messages {
		if msg.SessionID == sessionID {
			all = append(all, msg)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeMessageRepo) CountBySession(_ context.Context, sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, msg := range r.messages {
		if msg.SessionID == sessionID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, sessionID, viewerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	count := 0
	for i := range r.messages {
		msg := &r.messages[i]
		if msg.SessionID != sessionID || msg.IsRead || msg.Sender.ID == viewerID {
			continue
		}
		msg.IsRead = true
		msg.ReadAt = &now
		count++
	}
	return count, nil
}

func (r *fakeMessageRepo) UnreadCount(_ context.Context, sessionIDs []string, viewerID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make(map[string]struct{}, len(sessionIDs))
	for _, id := range sessionIDs {
		ids[id] = struct{}{}
	}
	count := 0
	for _, msg := range r.messages {
		if _, ok := ids[msg.SessionID]; !ok {
			continue
		}
		if !msg.IsRead && msg.Sender.ID != viewerID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMessageRepo) bySession(sessionID string) []domain.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, msg := range r.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts []*domain.Account
}

func newFakeAccountRepo(accounts ...*domain.Account) *fakeAccountRepo {
	return &fakeAccountRepo{accounts: accounts}
}

func (r *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account.CreatedAt = time.Now()
	r.accounts = append(r.accounts, account)
	return nil
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.ID == id {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) GetByName(_ context.Context, name string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Name == name {
			return account, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAccountRepo) FirstByRoles(_ context.Context, roles []domain.Role) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first *domain.Account
	for _, account := range r.accounts {
		for _, role := range roles {
			if account.Role != role {
				continue
			}
			if first == nil || account.CreatedAt.Before(first.CreatedAt) {
				first = account
			}
		}
	}
	return first, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
