package repository

import (
	"context"

	"github.com/saeid-a/FitOnboardBack/internal/models"
)

type CreateSubscriptionInput struct {
	UserID                int64
	PlanID                int64
	GatewaySubscriptionID *string
	Status                string
	PaymentIntent         *models.PaymentIntent
}

type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, gateway_subscription_id, status,
	payment_intent_id, payment_intent_status, client_secret, created_at, updated_at`

func scanSubscription(row interface{ Scan(dest ...any) error }) (*models.Subscription, error) {
	var (
		sub          models.Subscription
		intentID     *string
		intentStatus *string
		clientSecret *string
	)
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&sub.GatewaySubscriptionID,
		&sub.Status,
		&intentID,
		&intentStatus,
		&clientSecret,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if intentID != nil {
		sub.PaymentIntent = &models.PaymentIntent{ID: *intentID, ClientSecret: clientSecret}
		if intentStatus != nil {
			sub.PaymentIntent.Status = *intentStatus
		}
	}
	return &sub, nil
}

func intentColumns(intent *models.PaymentIntent) (id, status, secret *string) {
	if intent == nil {
		return nil, nil, nil
	}
	return &intent.ID, &intent.Status, intent.ClientSecret
}

func (r *SubscriptionRepository) Create(ctx context.Context, input CreateSubscriptionInput) (*models.Subscription, error) {
	intentID, intentStatus, clientSecret := intentColumns(input.PaymentIntent)
	query := `
		INSERT INTO subscriptions (user_id, plan_id, gateway_subscription_id, status,
			payment_intent_id, payment_intent_status, client_secret)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + subscriptionColumns

	return scanSubscription(r.db.QueryRow(ctx, query,
		input.UserID,
		input.PlanID,
		input.GatewaySubscriptionID,
		input.Status,
		intentID,
		intentStatus,
		clientSecret,
	))
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id int64) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	return scanSubscription(r.db.QueryRow(ctx, query, id))
}

func (r *SubscriptionRepository) GetForUser(ctx context.Context, id, userID int64) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1 AND user_id = $2`
	return scanSubscription(r.db.QueryRow(ctx, query, id, userID))
}

// UpdateStatusIfCurrent moves a subscription from currentStatus to
// nextStatus. pgx.ErrNoRows means another request already moved it.
func (r *SubscriptionRepository) UpdateStatusIfCurrent(ctx context.Context, id int64, currentStatus, nextStatus string, intent *models.PaymentIntent) (*models.Subscription, error) {
	intentID, intentStatus, clientSecret := intentColumns(intent)
	query := `
		UPDATE subscriptions
		SET status = $3,
			payment_intent_id = COALESCE($4, payment_intent_id),
			payment_intent_status = COALESCE($5, payment_intent_status),
			client_secret = COALESCE($6, client_secret),
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + subscriptionColumns

	return scanSubscription(r.db.QueryRow(ctx, query, id, currentStatus, nextStatus, intentID, intentStatus, clientSecret))
}
