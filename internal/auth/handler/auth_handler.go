package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/promptforge/auth-service/internal/auth/dto"
	"github.com/promptforge/auth-service/internal/auth/service"
	autherror "github.com/promptforge/auth-service/internal/errors"
)

type AuthHandler struct {
	userService  *service.UserService
	tokenService service.TokenGenerator
}

func NewAuthHandler(userService *service.UserService, tokenService service.TokenGenerator) *AuthHandler {
	return &AuthHandler{userService: userService, tokenService: tokenService}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(autherror.StatusCode(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	resp, err := h.userService.Register(c.Context(), input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	// Capture provenance metadata for the refresh-token ledger.
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	resp, err := h.userService.Login(c.Context(), input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.userService.Refresh(c.Context(), input)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.userService.Logout(c.Context(), input.RefreshToken); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	claims := mustClaims(c)

	if err := h.userService.LogoutAll(c.Context(), claims.UserID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out from all devices"})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var input dto.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	claims := mustClaims(c)

	if err := h.userService.ChangePassword(c.Context(), claims.UserID, input.CurrentPassword, input.NewPassword); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "password changed"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := mustUser(c)

	return c.Status(fiber.StatusOK).JSON(dto.NewUserOutput(user))
}

// Session reports the caller's identity when a valid bearer token accompanies
// the request and an anonymous view otherwise. Mounted behind OptionalAuth.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"authenticated": false})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"authenticated": true,
		"user":          dto.NewUserOutput(user),
	})
}

// ForceLogout lets an admin terminate every session of another user.
func (h *AuthHandler) ForceLogout(c *fiber.Ctx) error {
	userID := c.Params("id")

	if err := h.userService.LogoutAll(c.Context(), userID); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "sessions terminated"})
}
