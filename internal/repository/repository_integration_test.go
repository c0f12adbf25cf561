package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/saeid-a/FitOnboardBack/internal/models"
	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func createTestUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) *models.User {
	t.Helper()

	email := fmt.Sprintf("onboarding-%d@example.com", time.Now().UnixNano())
	user, err := NewUserRepository(pool).UpsertSocial(ctx, SocialLoginInput{
		Email:    email,
		Username: "tester",
		Platform: "email",
	})
	if err != nil {
		t.Fatalf("UpsertSocial: %v", err)
	}
	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), "DELETE FROM users WHERE id = $1", user.ID); err != nil {
			t.Errorf("cleanup user %d: %v", user.ID, err)
		}
	})
	return user
}

func TestUserUpsertSocialIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	repo := NewUserRepository(pool)
	user := createTestUser(t, ctx, pool)

	externalID := "apple-1"
	again, err := repo.UpsertSocial(ctx, SocialLoginInput{
		Email:          user.Email,
		Username:       "renamed",
		Platform:       "apple",
		ExternalUserID: &externalID,
	})
	if err != nil {
		t.Fatalf("UpsertSocial: %v", err)
	}
	if again.ID != user.ID || again.Username != "renamed" || again.Platform != "apple" {
		t.Fatalf("expected same user refreshed, got %+v", again)
	}
	if again.ExternalUserID == nil || *again.ExternalUserID != externalID {
		t.Fatalf("expected external id stored, got %v", again.ExternalUserID)
	}

	byEmail, err := repo.GetByEmail(ctx, user.Email)
	if err != nil || byEmail.ID != user.ID {
		t.Fatalf("GetByEmail: %+v %v", byEmail, err)
	}
}

func TestUserInfoUpsertStoresPayload(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	repo := NewUserInfoRepository(pool)
	user := createTestUser(t, ctx, pool)

	if _, err := repo.GetByUserID(ctx, user.ID); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected no user info yet, got %v", err)
	}

	first, err := repo.Upsert(ctx, user.ID, onboarding.Payload{Gender: "MALE", Equipments: []string{"bench"}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second, err := repo.Upsert(ctx, user.ID, onboarding.Payload{Gender: "FEMALE", Equipments: []string{"mat"}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected one user info row, got ids %d and %d", first.ID, second.ID)
	}

	stored, err := repo.GetByUserID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if stored.Payload.Gender != "FEMALE" || len(stored.Payload.Equipments) != 1 || stored.Payload.Equipments[0] != "mat" {
		t.Fatalf("unexpected stored payload %+v", stored.Payload)
	}
}

func TestSubscriptionStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	user := createTestUser(t, ctx, pool)

	var planID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO subscription_plans (name, price_cents, currency, interval, gateway_price_id)
		VALUES ('Test monthly', 999, 'usd', 'month', 'price_test')
		RETURNING id
	`).Scan(&planID)
	if err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "DELETE FROM subscriptions WHERE plan_id = $1", planID)
		_, _ = pool.Exec(context.Background(), "DELETE FROM subscription_plans WHERE id = $1", planID)
	})

	plan, err := NewPlanRepository(pool).GetByID(ctx, planID)
	if err != nil || plan.GatewayPriceID != "price_test" || !plan.Active {
		t.Fatalf("GetByID plan: %+v %v", plan, err)
	}

	repo := NewSubscriptionRepository(pool)
	secret := "pi_secret"
	created, err := repo.Create(ctx, CreateSubscriptionInput{
		UserID: user.ID,
		PlanID: planID,
		Status: models.SubscriptionStatusActionRequired,
		PaymentIntent: &models.PaymentIntent{
			ID:           "pi_1",
			Status:       "requires_action",
			ClientSecret: &secret,
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.PaymentIntent == nil || created.PaymentIntent.ID != "pi_1" {
		t.Fatalf("expected payment intent stored, got %+v", created.PaymentIntent)
	}

	updated, err := repo.UpdateStatusIfCurrent(ctx, created.ID,
		models.SubscriptionStatusActionRequired,
		models.SubscriptionStatusActive,
		&models.PaymentIntent{ID: "pi_1", Status: "succeeded"},
	)
	if err != nil {
		t.Fatalf("UpdateStatusIfCurrent: %v", err)
	}
	if updated.Status != models.SubscriptionStatusActive || updated.PaymentIntent.Status != "succeeded" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if updated.PaymentIntent.ClientSecret == nil || *updated.PaymentIntent.ClientSecret != secret {
		t.Fatal("expected client secret kept when not replaced")
	}

	if _, err := repo.UpdateStatusIfCurrent(ctx, created.ID,
		models.SubscriptionStatusActionRequired,
		models.SubscriptionStatusFailed,
		nil,
	); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected stale transition to miss, got %v", err)
	}

	if _, err := repo.GetForUser(ctx, created.ID, user.ID+1); !errors.Is(err, pgx.ErrNoRows) {
		t.Fatalf("expected other users not to see the subscription, got %v", err)
	}
}

func TestCatalogListByKind(t *testing.T) {
	pool := integrationTestPool(t)

	items, total, err := NewCatalogRepository(pool).ListByKind(context.Background(), CatalogFilter{Kind: "equipment", Limit: 100})
	if err != nil {
		t.Fatalf("ListByKind: %v", err)
	}
	if total < len(items) {
		t.Fatalf("total %d smaller than page of %d", total, len(items))
	}
	for i, item := range items {
		if item.Kind != "equipment" {
			t.Fatalf("unexpected kind %q", item.Kind)
		}
		if i > 0 && items[i-1].SortOrder > item.SortOrder {
			t.Fatal("expected items ordered by sort order")
		}
	}
}
