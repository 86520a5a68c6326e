package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/fabrimaq/maintenance-service/internal/domain"
	"github.com/fabrimaq/maintenance-service/internal/repository"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

const actorKey = "auth_actor"

// Middleware resolves the caller into a domain.Actor. Identity arrives as a
// bearer JWT or, for trusted internal callers, an x-user-email header; either
// way the email must resolve against usuarios before any handler runs.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	email, err := m.callerEmail(c)
	if err != nil {
		return err
	}

	user, err := m.users.GetByEmail(c.Context(), email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not registered")
		}
		return apperrors.MapError(err)
	}

	c.Locals(actorKey, domain.Actor{
		ID:    user.ID,
		Role:  user.Role,
		Email: user.Email,
		Name:  user.Name,
	})
	return c.Next()
}

func (m *Middleware) callerEmail(c *fiber.Ctx) (string, error) {
	if header := c.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", apperrors.NewUnauthorized("invalid authorization header")
		}
		claims, err := m.tokens.ParseToken(parts[1])
		if err != nil {
			return "", apperrors.NewUnauthorized("invalid token")
		}
		return claims.Email, nil
	}
	if email := strings.TrimSpace(c.Get("x-user-email")); email != "" {
		return email, nil
	}
	return "", apperrors.NewUnauthorized("missing credentials")
}

// ActorFromContext retrieves the authenticated caller.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}
