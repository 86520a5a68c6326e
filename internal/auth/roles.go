package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// RequireRole gates a route to the given roles. Admin always passes.
func RequireRole(roles ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !actor.Is(roles...) {
			return apperrors.NewPermissionDenied("insufficient role")
		}
		return c.Next()
	}
}
