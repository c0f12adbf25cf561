package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/FitOnboardBack/internal/services"
)

type authApplicationService interface {
	SocialLogin(ctx context.Context, input services.SocialLoginInput) (*services.LoginResult, error)
	Me(ctx context.Context, userID int64) (*services.Profile, error)
	Logout(ctx context.Context, userID int64) error
}

type AuthHandler struct {
	service authApplicationService
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

type socialLoginRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Username       string `json:"username" validate:"omitempty,max=100"`
	Platform       string `json:"platform" validate:"required,oneof=google apple facebook email"`
	ExternalUserID string `json:"externalUserId" validate:"omitempty,max=255"`
}

func (h *AuthHandler) SocialLogin(c *fiber.Ctx) error {
	var req socialLoginRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	result, err := h.service.SocialLogin(c.Context(), services.SocialLoginInput{
		Email:          req.Email,
		Username:       req.Username,
		Platform:       req.Platform,
		ExternalUserID: req.ExternalUserID,
	})
	if err != nil {
		return mapAuthError(c, err)
	}
	return c.JSON(result)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.service.Me(c.Context(), userID)
	if err != nil {
		return mapAuthError(c, err)
	}
	return c.JSON(profile)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	if err := h.service.Logout(c.Context(), userID); err != nil {
		return mapAuthError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func mapAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated", "redirect": "/register"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process login"})
	}
}
