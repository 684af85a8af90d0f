package handler

import (
	"strings"

	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/service"
	"github.com/gofiber/fiber/v2"
)

const claimsLocalKey = "claims"

// Authenticate validates the bearer access token and stores its claims in
// the request locals. Validity is signature + expiry only; there is no
// store lookup and no revocation list for access tokens.
func (h *AuthHandler) Authenticate(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericAuthMessage})
	}

	claims, err := h.tokens.VerifyAccessToken(token)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericAuthMessage})
	}

	c.Locals(claimsLocalKey, claims)
	return c.Next()
}

func claimsFromLocals(c *fiber.Ctx) *service.AccessClaims {
	claims, _ := c.Locals(claimsLocalKey).(*service.AccessClaims)
	return claims
}

// RequireRole gates a route on the role names carried in the access token,
// under the configured any/all policy. Run Authenticate first.
func (h *AuthHandler) RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := claimsFromLocals(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericAuthMessage})
		}

		if !h.rbac.RolesSatisfy(claims.Roles, roles...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}

		return c.Next()
	}
}

// RequirePermissions gates a route on the caller's effective permission set.
// Roles are re-read from the store so role changes apply immediately rather
// than after token expiry.
func (h *AuthHandler) RequirePermissions(permissions ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := claimsFromLocals(c)
		if claims == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericAuthMessage})
		}

		user, err := h.users.GetByID(c.Context(), claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
		if user == nil || !user.Active || !h.rbac.RequirePermissions(user, permissions...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
		}

		return c.Next()
	}
}
