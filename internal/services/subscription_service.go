package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/FitOnboardBack/internal/metrics"
	"github.com/saeid-a/FitOnboardBack/internal/models"
	"github.com/saeid-a/FitOnboardBack/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrPlanNotFound         = errors.New("plan not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrGatewayUnavailable   = errors.New("payment gateway not configured")
	ErrGatewayFailed        = errors.New("payment gateway request failed")
)

type PaymentOutcome string

const (
	OutcomeSuccess        PaymentOutcome = "success"
	OutcomeActionRequired PaymentOutcome = "action_required"
	OutcomeFailed         PaymentOutcome = "failed"
	OutcomePending        PaymentOutcome = "pending"
)

// ResolvePaymentOutcome maps a payment intent status onto the purchase flow.
// Unknown statuses are treated as still pending.
func ResolvePaymentOutcome(intentStatus string) PaymentOutcome {
	switch intentStatus {
	case "succeeded":
		return OutcomeSuccess
	case "requires_action", "requires_confirmation":
		return OutcomeActionRequired
	case "requires_payment_method", "canceled":
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

func (o PaymentOutcome) SubscriptionStatus() string {
	switch o {
	case OutcomeSuccess:
		return models.SubscriptionStatusActive
	case OutcomeActionRequired:
		return models.SubscriptionStatusActionRequired
	case OutcomeFailed:
		return models.SubscriptionStatusFailed
	default:
		return models.SubscriptionStatusPending
	}
}

func outcomeForStatus(status string) PaymentOutcome {
	switch status {
	case models.SubscriptionStatusActive:
		return OutcomeSuccess
	case models.SubscriptionStatusActionRequired:
		return OutcomeActionRequired
	case models.SubscriptionStatusFailed:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}

type planReader interface {
	ListActive(ctx context.Context) ([]models.SubscriptionPlan, error)
	GetByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error)
}

type subscriptionStore interface {
	Create(ctx context.Context, input repository.CreateSubscriptionInput) (*models.Subscription, error)
	GetForUser(ctx context.Context, id, userID int64) (*models.Subscription, error)
	UpdateStatusIfCurrent(ctx context.Context, id int64, currentStatus, nextStatus string, intent *models.PaymentIntent) (*models.Subscription, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type SubscriptionService struct {
	planRepo         planReader
	subscriptionRepo subscriptionStore
	userRepo         userReader
	gateway          PaymentGateway
	log              *zap.Logger
}

func NewSubscriptionService(
	planRepo planReader,
	subscriptionRepo subscriptionStore,
	userRepo userReader,
	gateway PaymentGateway,
	log *zap.Logger,
) *SubscriptionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SubscriptionService{
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		gateway:          gateway,
		log:              log,
	}
}

type PurchaseInput struct {
	PlanID          int64
	PaymentMethodID string
}

type PurchaseResult struct {
	Subscription *models.Subscription `json:"subscription"`
	Outcome      PaymentOutcome       `json:"outcome"`
}

func (s *SubscriptionService) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.planRepo.ListActive(ctx)
}

func (s *SubscriptionService) Purchase(ctx context.Context, userID int64, input PurchaseInput) (*PurchaseResult, error) {
	if input.PlanID <= 0 || strings.TrimSpace(input.PaymentMethodID) == "" {
		return nil, ErrInvalidInput
	}

	plan, err := s.planRepo.GetByID(ctx, input.PlanID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.Active {
		return nil, ErrPlanNotFound
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}

	created, err := s.gateway.CreateSubscription(ctx, CreateGatewaySubscriptionInput{
		Email:           user.Email,
		PriceID:         plan.GatewayPriceID,
		PaymentMethodID: input.PaymentMethodID,
	})
	if err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			return nil, err
		}
		s.log.Warn("gateway subscription failed", zap.Int64("user_id", userID), zap.Int64("plan_id", plan.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}

	outcome := ResolvePaymentOutcome(created.PaymentIntent.Status)
	intent := created.PaymentIntent
	subscription, err := s.subscriptionRepo.Create(ctx, repository.CreateSubscriptionInput{
		UserID:                userID,
		PlanID:                plan.ID,
		GatewaySubscriptionID: &created.ID,
		Status:                outcome.SubscriptionStatus(),
		PaymentIntent:         &intent,
	})
	if err != nil {
		return nil, err
	}

	metrics.SubscriptionPurchases.WithLabelValues(string(outcome)).Inc()
	s.log.Info("subscription purchased",
		zap.Int64("user_id", userID),
		zap.Int64("subscription_id", subscription.ID),
		zap.String("outcome", string(outcome)),
	)
	return &PurchaseResult{Subscription: subscription, Outcome: outcome}, nil
}

// Confirm re-reads the payment intent after the client has completed the
// extra authentication step and settles the subscription status.
func (s *SubscriptionService) Confirm(ctx context.Context, userID, subscriptionID int64) (*PurchaseResult, error) {
	subscription, err := s.subscriptionRepo.GetForUser(ctx, subscriptionID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	switch subscription.Status {
	case models.SubscriptionStatusActionRequired, models.SubscriptionStatusPending:
	default:
		return &PurchaseResult{Subscription: subscription, Outcome: outcomeForStatus(subscription.Status)}, nil
	}
	if subscription.PaymentIntent == nil {
		return nil, ErrInvalidStateTransition
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, subscription.PaymentIntent.ID)
	if err != nil {
		if errors.Is(err, ErrGatewayUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}

	outcome := ResolvePaymentOutcome(intent.Status)
	// The client secret is only handed out once, on purchase.
	intent.ClientSecret = nil
	updated, err := s.subscriptionRepo.UpdateStatusIfCurrent(ctx, subscription.ID, subscription.Status, outcome.SubscriptionStatus(), intent)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		current, err := s.subscriptionRepo.GetForUser(ctx, subscriptionID, userID)
		if err != nil {
			return nil, err
		}
		return &PurchaseResult{Subscription: current, Outcome: outcomeForStatus(current.Status)}, nil
	}

	metrics.SubscriptionPurchases.WithLabelValues(string(outcome)).Inc()
	return &PurchaseResult{Subscription: updated, Outcome: outcome}, nil
}
