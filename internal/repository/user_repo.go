package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/saeid-a/FitOnboardBack/internal/models"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SocialLoginInput struct {
	Email          string
	Username       string
	Platform       string
	ExternalUserID *string
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertSocial creates the user on first login and refreshes the social
// identity on later ones.
func (r *UserRepository) UpsertSocial(ctx context.Context, input SocialLoginInput) (*models.User, error) {
	query := `
		INSERT INTO users (email, username, platform, external_user_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET username = EXCLUDED.username,
			platform = EXCLUDED.platform,
			external_user_id = COALESCE(EXCLUDED.external_user_id, users.external_user_id),
			updated_at = NOW()
		RETURNING id, email, username, platform, external_user_id, created_at, updated_at
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, input.Email, input.Username, input.Platform, input.ExternalUserID).
		Scan(&user.ID, &user.Email, &user.Username, &user.Platform, &user.ExternalUserID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, username, platform, external_user_id, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Email, &user.Username, &user.Platform, &user.ExternalUserID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, email, username, platform, external_user_id, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).
		Scan(&user.ID, &user.Email, &user.Username, &user.Platform, &user.ExternalUserID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
