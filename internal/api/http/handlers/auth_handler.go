package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/fabrimaq/maintenance-service/internal/auth"
	"github.com/fabrimaq/maintenance-service/internal/repository"
	apperrors "github.com/fabrimaq/maintenance-service/pkg/util/errorutil"
)

// AuthHandler exchanges an already-authenticated request for a signed token,
// so callers resolved through the gateway header can switch to Bearer auth.
type AuthHandler struct {
	tokens *auth.TokenManager
	users  repository.UserRepository
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *auth.TokenManager, users repository.UserRepository) *AuthHandler {
	return &AuthHandler{tokens: tokens, users: users}
}

// IssueToken POST /auth/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	user, err := h.users.GetByID(c.UserContext(), actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user not registered")
		}
		return apperrors.MapError(err)
	}

	token, expiresAt, err := h.tokens.GenerateToken(user)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{
		"token":    token,
		"expiraEm": expiresAt,
	})
}
