package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chat-service/internal/domain"
)

// AccountRepository handles persistence for chat identities.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByName(ctx context.Context, name string) (*domain.Account, error)
	// FirstByRoles returns the earliest-created account holding one of the
	// roles, or nil when none exists.
	FirstByRoles(ctx context.Context, roles []domain.Role) (*domain.Account, error)
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository instantiates the repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (name, display_name, role)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		account.Name,
		account.DisplayName,
		account.Role,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	const query = `
        SELECT id, name, display_name, role, created_at, updated_at
        FROM accounts WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *accountRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	const query = `
        SELECT id, name, display_name, role, created_at, updated_at
        FROM accounts WHERE name=$1`
	return r.fetchSingle(ctx, query, name)
}

func (r *accountRepository) FirstByRoles(ctx context.Context, roles []domain.Role) (*domain.Account, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(roles))
	args := make([]any, len(roles))
	for i, role := range roles {
		args[i] = role
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`
        SELECT id, name, display_name, role, created_at, updated_at
        FROM accounts WHERE role IN (%s)
        ORDER BY created_at ASC LIMIT 1`, strings.Join(placeholders, ","))

	account, err := r.fetchSingleArgs(ctx, query, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return account, err
}

func (r *accountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Account, error) {
	return r.fetchSingleArgs(ctx, query, arg)
}

func (r *accountRepository) fetchSingleArgs(ctx context.Context, query string, args ...any) (*domain.Account, error) {
	var account domain.Account
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&account.ID,
		&account.Name,
		&account.DisplayName,
		&account.Role,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}
