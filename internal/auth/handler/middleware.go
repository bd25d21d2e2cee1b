package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/promptforge/auth-service/internal/auth/domain"
	"github.com/promptforge/auth-service/internal/auth/service"
)

const (
	localUser   = "user"
	localClaims = "claims"

	bearerPrefix = "Bearer "
)

// RequireAuth verifies the bearer access token, loads the user, and rejects
// missing or deactivated accounts.
func (h *AuthHandler) RequireAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "no authentication token provided",
		})
	}

	claims, err := h.tokenService.Verify(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		return errorResponse(c, err)
	}

	user, err := h.userService.GetUser(c.Context(), claims.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	if user == nil || !user.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "user not found or inactive",
		})
	}

	c.Locals(localUser, user)
	c.Locals(localClaims, claims)

	return c.Next()
}

// OptionalAuth attaches an identity when a valid bearer token is present and
// proceeds anonymously otherwise. An invalid token is "no identity", never an
// error.
func (h *AuthHandler) OptionalAuth(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, bearerPrefix) {
		return c.Next()
	}

	claims, err := h.tokenService.Verify(strings.TrimPrefix(header, bearerPrefix))
	if err != nil {
		return c.Next()
	}

	user, err := h.userService.GetUser(c.Context(), claims.UserID)
	if err != nil || user == nil || !user.IsActive {
		return c.Next()
	}

	c.Locals(localUser, user)
	c.Locals(localClaims, claims)

	return c.Next()
}

// RequireRole gates a route on the authenticated user's role. It must run
// after RequireAuth.
func (h *AuthHandler) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := c.Locals(localUser).(*domain.User)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "no authentication token provided",
			})
		}
		if user.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "insufficient permissions",
			})
		}

		return c.Next()
	}
}

func mustUser(c *fiber.Ctx) *domain.User {
	return c.Locals(localUser).(*domain.User)
}

// currentUser returns the identity attached by RequireAuth or OptionalAuth,
// if any.
func currentUser(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(localUser).(*domain.User)
	return user, ok
}

func mustClaims(c *fiber.Ctx) *service.AccessClaims {
	return c.Locals(localClaims).(*service.AccessClaims)
}
