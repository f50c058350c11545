package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/chat-service/pkg/util"
)

// RequireAuthenticated ensures a verified caller is present.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireElevated ensures the caller holds a support-capable role.
func RequireElevated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Role.Elevated() {
			return apperrors.NewForbidden("support role required")
		}
		return c.Next()
	}
}
