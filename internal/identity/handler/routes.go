package handler

import (
	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	app.Post("/api/v1/register", h.Register)
	app.Post("/api/v1/login", h.Login)
	app.Post("/api/v1/refresh", h.Refresh)
	app.Delete("/api/v1/session", h.Logout)
	app.Post("/api/v1/password-reset/request", h.RequestReset)
	app.Post("/api/v1/password-reset/complete", h.CompleteReset)

	// Admin-only endpoints
	admin := app.Group("/api/v1/admin", h.Authenticate, h.RequireRole(constant.AdminRoleName))
	admin.Get("/user/:id/sessions", h.GetUserSessions)
	admin.Delete("/user/:id/sessions", h.ForceLogout)
}
