package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/chat-service/internal/domain"
	"github.com/spec-kit/chat-service/internal/repository"
	apperrors "github.com/spec-kit/chat-service/pkg/util"
)

// PrincipalLocalKey names the fiber local holding the authenticated caller.
// Exported so websocket handlers can read it off the upgraded connection.
const PrincipalLocalKey = "auth_principal"

// Principal is the verified caller identity threaded into every operation.
// The account's stored role is authoritative, not the token claim.
type Principal struct {
	Account *domain.Account
	Role    domain.Role
}

// ID returns the caller's account id.
func (p *Principal) ID() string {
	if p == nil || p.Account == nil {
		return ""
	}
	return p.Account.ID
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens   *TokenManager
	accounts repository.AccountRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, accounts repository.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, accounts: accounts}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	account, err := m.accounts.GetByID(c.Context(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("account not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(PrincipalLocalKey, &Principal{Account: account, Role: account.Role})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	return PrincipalFromLocal(c.Locals(PrincipalLocalKey))
}

// PrincipalFromLocal retrieves the caller from a raw locals value, for
// websocket connections where the fiber context is gone after the upgrade.
func PrincipalFromLocal(val interface{}) (*Principal, bool) {
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
