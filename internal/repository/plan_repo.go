package repository

import (
	"context"

	"github.com/saeid-a/FitOnboardBack/internal/models"
)

type PlanRepository struct {
	db DBTX
}

func NewPlanRepository(db DBTX) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) ListActive(ctx context.Context) ([]models.SubscriptionPlan, error) {
	query := `
		SELECT id, name, description, price_cents, currency, interval, gateway_price_id, active
		FROM subscription_plans
		WHERE active = TRUE
		ORDER BY price_cents ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := make([]models.SubscriptionPlan, 0)
	for rows.Next() {
		var plan models.SubscriptionPlan
		if err := rows.Scan(
			&plan.ID,
			&plan.Name,
			&plan.Description,
			&plan.PriceCents,
			&plan.Currency,
			&plan.Interval,
			&plan.GatewayPriceID,
			&plan.Active,
		); err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*models.SubscriptionPlan, error) {
	query := `
		SELECT id, name, description, price_cents, currency, interval, gateway_price_id, active
		FROM subscription_plans
		WHERE id = $1
	`
	var plan models.SubscriptionPlan
	err := r.db.QueryRow(ctx, query, id).Scan(
		&plan.ID,
		&plan.Name,
		&plan.Description,
		&plan.PriceCents,
		&plan.Currency,
		&plan.Interval,
		&plan.GatewayPriceID,
		&plan.Active,
	)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
