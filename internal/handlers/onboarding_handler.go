package handlers

import (
	"context"
	"errors"
	"strconv"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
	"github.com/saeid-a/FitOnboardBack/internal/services"
	statews "github.com/saeid-a/FitOnboardBack/internal/websocket"
)

type wizardApplicationService interface {
	State(ctx context.Context, userID int64) (*services.WizardView, error)
	UpdateField(ctx context.Context, userID int64, name string, value any) (*services.WizardView, error)
	UpdateFields(ctx context.Context, userID int64, patch map[string]any) (*services.WizardView, error)
	SetStep(ctx context.Context, userID int64, step int) (*services.WizardView, error)
	Navigate(ctx context.Context, userID int64, step int) (*services.NavigateResult, error)
	Advance(ctx context.Context, userID int64) (*services.StepResult, error)
	Back(ctx context.Context, userID int64) (*services.WizardView, error)
	SetDateOfBirth(ctx context.Context, userID int64, value string) (*services.WizardView, error)
	ToggleUnits(ctx context.Context, userID int64) (*services.WizardView, error)
	SetMeasurement(ctx context.Context, userID int64, input services.MeasurementInput) (*services.WizardView, error)
	StepValidity(ctx context.Context, userID int64, step int) (bool, error)
	Payload(ctx context.Context, userID int64) (*onboarding.Payload, error)
	Submit(ctx context.Context, userID int64) (*services.SubmitResult, error)
	Reset(ctx context.Context, userID int64) (*services.WizardView, error)
}

type OnboardingHandler struct {
	service wizardApplicationService
	hub     *statews.Hub
}

func NewOnboardingHandler(service *services.WizardService, hub *statews.Hub) *OnboardingHandler {
	return &OnboardingHandler{service: service, hub: hub}
}

type updateFieldRequest struct {
	Value any `json:"value"`
}

type stepRequest struct {
	Step int `json:"step" validate:"required,min=1"`
}

type dateOfBirthRequest struct {
	DateOfBirth string `json:"dateOfBirth" validate:"required"`
}

type measurementRequest struct {
	Field string  `json:"field" validate:"required,oneof=weight desiredWeight height"`
	Value float64 `json:"value" validate:"gt=0"`
	Unit  string  `json:"unit" validate:"omitempty,oneof=kg lbs cm in"`
}

func (h *OnboardingHandler) State(c *fiber.Ctx) error {
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.State(ctx, userID)
	})
}

func (h *OnboardingHandler) UpdateField(c *fiber.Ctx) error {
	var req updateFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	name := c.Params("name")
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.UpdateField(ctx, userID, name, req.Value)
	})
}

func (h *OnboardingHandler) UpdateFields(c *fiber.Ctx) error {
	var patch map[string]any
	if err := c.BodyParser(&patch); err != nil || len(patch) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Request body must be a non-empty object"})
	}
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.UpdateFields(ctx, userID, patch)
	})
}

func (h *OnboardingHandler) SetStep(c *fiber.Ctx) error {
	var req stepRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.SetStep(ctx, userID, req.Step)
	})
}

func (h *OnboardingHandler) Navigate(c *fiber.Ctx) error {
	var req stepRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.Navigate(ctx, userID, req.Step)
	})
}

func (h *OnboardingHandler) Advance(c *fiber.Ctx) error {
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.Advance(ctx, userID)
	})
}

func (h *OnboardingHandler) Back(c *fiber.Ctx) error {
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.Back(ctx, userID)
	})
}

func (h *OnboardingHandler) SetDateOfBirth(c *fiber.Ctx) error {
	var req dateOfBirthRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.SetDateOfBirth(ctx, userID, req.DateOfBirth)
	})
}

func (h *OnboardingHandler) ToggleUnits(c *fiber.Ctx) error {
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.ToggleUnits(ctx, userID)
	})
}

func (h *OnboardingHandler) SetMeasurement(c *fiber.Ctx) error {
	var req measurementRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.SetMeasurement(ctx, userID, services.MeasurementInput{
			Field: req.Field,
			Value: req.Value,
			Unit:  req.Unit,
		})
	})
}

func (h *OnboardingHandler) StepValidity(c *fiber.Ctx) error {
	step, err := strconv.Atoi(c.Params("step"))
	if err != nil || step < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid step"})
	}
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		valid, err := h.service.StepValidity(ctx, userID, step)
		if err != nil {
			return nil, err
		}
		body := fiber.Map{"step": step, "valid": valid}
		if !valid {
			body["warning"] = "Please complete this step before continuing"
		}
		return body, nil
	})
}

func (h *OnboardingHandler) Payload(c *fiber.Ctx) error {
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.Payload(ctx, userID)
	})
}

func (h *OnboardingHandler) Submit(c *fiber.Ctx) error {
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.Submit(ctx, userID)
	})
}

func (h *OnboardingHandler) Reset(c *fiber.Ctx) error {
	return h.respond(c, func(ctx context.Context, userID int64) (any, error) {
		return h.service.Reset(ctx, userID)
	})
}

func (h *OnboardingHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}
	return c.Next()
}

func (h *OnboardingHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	client := statews.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump()
}

func (h *OnboardingHandler) respond(c *fiber.Ctx, fn func(ctx context.Context, userID int64) (any, error)) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	body, err := fn(c.Context(), userID)
	if err != nil {
		return mapWizardError(c, err)
	}
	return c.JSON(body)
}

func mapWizardError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated", "redirect": "/register"})
	case errors.Is(err, onboarding.ErrUnknownField),
		errors.Is(err, onboarding.ErrReadOnlyField),
		errors.Is(err, onboarding.ErrInvalidFieldValue):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrSubmissionFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to save your answers, please try again"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process onboarding request"})
	}
}
