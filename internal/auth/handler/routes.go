package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/promptforge/auth-service/pkg/constant"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	v1 := app.Group("/api/v1")

	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Post("/refresh", h.Refresh)
	v1.Post("/logout", h.Logout)
	v1.Get("/session", h.OptionalAuth, h.Session)

	authed := v1.Group("", h.RequireAuth)
	authed.Post("/logout-all", h.LogoutAll)
	authed.Put("/password", h.ChangePassword)
	authed.Get("/me", h.Me)

	// Admin-only endpoints
	admin := v1.Group("/admin", h.RequireAuth, h.RequireRole(constant.RoleAdmin))
	admin.Delete("/users/:id/sessions", h.ForceLogout)
}
