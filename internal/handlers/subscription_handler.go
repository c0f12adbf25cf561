package handlers

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/FitOnboardBack/internal/models"
	"github.com/saeid-a/FitOnboardBack/internal/services"
)

type subscriptionApplicationService interface {
	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	Purchase(ctx context.Context, userID int64, input services.PurchaseInput) (*services.PurchaseResult, error)
	Confirm(ctx context.Context, userID, subscriptionID int64) (*services.PurchaseResult, error)
}

type SubscriptionHandler struct {
	service subscriptionApplicationService
}

func NewSubscriptionHandler(service *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

type purchaseRequest struct {
	PlanID          int64  `json:"planId" validate:"required,gt=0"`
	PaymentMethodID string `json:"paymentMethodId" validate:"required"`
}

func (h *SubscriptionHandler) ListPlans(c *fiber.Ctx) error {
	plans, err := h.service.ListPlans(c.Context())
	if err != nil {
		return mapSubscriptionError(c, err)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

func (h *SubscriptionHandler) Purchase(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req purchaseRequest
	if ok, err := bindRequest(c, &req); !ok {
		return err
	}

	result, err := h.service.Purchase(c.Context(), userID, services.PurchaseInput{
		PlanID:          req.PlanID,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		return mapSubscriptionError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *SubscriptionHandler) Confirm(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	subscriptionID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || subscriptionID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid subscription id"})
	}

	result, err := h.service.Confirm(c.Context(), userID, subscriptionID)
	if err != nil {
		return mapSubscriptionError(c, err)
	}
	return c.JSON(result)
}

func mapSubscriptionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotAuthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated", "redirect": "/register"})
	case errors.Is(err, services.ErrPlanNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Plan not found"})
	case errors.Is(err, services.ErrSubscriptionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Subscription not found"})
	case errors.Is(err, services.ErrInvalidStateTransition):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrGatewayUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Payments are not available right now"})
	case errors.Is(err, services.ErrGatewayFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment provider request failed"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process subscription request"})
	}
}
