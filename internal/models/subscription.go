package models

import "time"

const (
	SubscriptionStatusPending        = "pending"
	SubscriptionStatusActionRequired = "action_required"
	SubscriptionStatusActive         = "active"
	SubscriptionStatusFailed         = "failed"
)

type SubscriptionPlan struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	PriceCents     int64   `json:"price_cents"`
	Currency       string  `json:"currency"`
	Interval       string  `json:"interval"`
	GatewayPriceID string  `json:"-"`
	Active         bool    `json:"active"`
}

type PaymentIntent struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	ClientSecret *string `json:"client_secret,omitempty"`
}

type Subscription struct {
	ID                    int64          `json:"id"`
	UserID                int64          `json:"user_id"`
	PlanID                int64          `json:"plan_id"`
	GatewaySubscriptionID *string        `json:"gateway_subscription_id"`
	Status                string         `json:"status"`
	PaymentIntent         *PaymentIntent `json:"payment_intent,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}
