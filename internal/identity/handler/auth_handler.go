package handler

import (
	"errors"

	autherror "github.com/AnthoniusHendriyanto/identity-core/internal/errors"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/dto"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// genericAuthMessage is returned for every credential or token rejection so
// responses never reveal whether an account or token exists.
const genericAuthMessage = "invalid credentials or token"

type AuthHandler struct {
	users    *service.UserService
	refresh  *service.RefreshService
	resets   *service.ResetService
	tokens   service.TokenGenerator
	rbac     *service.RBACService
	validate *validator.Validate
}

func NewAuthHandler(users *service.UserService, refresh *service.RefreshService,
	resets *service.ResetService, tokens service.TokenGenerator, rbac *service.RBACService) *AuthHandler {
	return &AuthHandler{
		users:    users,
		refresh:  refresh,
		resets:   resets,
		tokens:   tokens,
		rbac:     rbac,
		validate: validator.New(),
	}
}

func (h *AuthHandler) parseAndValidate(c *fiber.Ctx, input any) error {
	if err := c.BodyParser(input); err != nil {
		return err
	}
	return h.validate.Struct(input)
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := h.parseAndValidate(c, &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	user, err := h.users.Register(c.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, autherror.ErrEmailAlreadyInUse), errors.Is(err, autherror.ErrUsernameAlreadyInUse):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		default:
			if wpe, ok := autherror.IsWeakPassword(err); ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": wpe.Reason})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":       user.ID,
		"email":    user.Email,
		"username": user.Username,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := h.parseAndValidate(c, &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	// Capture metadata
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokenPair, err := h.users.Login(c.Context(), input)
	if err != nil {
		if errors.Is(err, autherror.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericAuthMessage})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(tokenPair)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := h.parseAndValidate(c, &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.refresh.Rotate(c.Context(), input)
	if err != nil {
		if autherror.IsTokenRejection(err) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericAuthMessage})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := h.parseAndValidate(c, &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.users.Logout(c.Context(), input.RefreshToken); err != nil {
		if autherror.IsTokenRejection(err) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": genericAuthMessage})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) RequestReset(c *fiber.Ctx) error {
	var input dto.RequestResetInput
	if err := h.parseAndValidate(c, &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	// The token goes out through a delivery channel (mailer) that is not
	// part of this service; it is never included in the response, and an
	// unknown email gets the same answer as a known one.
	_, err := h.resets.RequestReset(c.Context(), input.Email)
	if err != nil && !errors.Is(err, autherror.ErrUserNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "if the account exists, a reset token has been issued",
	})
}

func (h *AuthHandler) CompleteReset(c *fiber.Ctx) error {
	var input dto.CompleteResetInput
	if err := h.parseAndValidate(c, &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.resets.CompleteReset(c.Context(), input.Token, input.NewPassword); err != nil {
		switch {
		case errors.Is(err, autherror.ErrResetTokenInvalid), errors.Is(err, autherror.ErrResetTokenExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid or expired token"})
		default:
			if wpe, ok := autherror.IsWeakPassword(err); ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": wpe.Reason})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
		}
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "password has been reset"})
}

func (h *AuthHandler) GetUserSessions(c *fiber.Ctx) error {
	userID := c.Params("id")

	sessions, err := h.users.GetUserSessions(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(sessions)
}

func (h *AuthHandler) ForceLogout(c *fiber.Ctx) error {
	userID := c.Params("id")

	if err := h.users.ForceLogout(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "sessions revoked"})
}
