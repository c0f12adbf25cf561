package repository

import (
	"context"

	"github.com/saeid-a/FitOnboardBack/internal/models"
	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
)

type UserInfoRepository struct {
	db DBTX
}

func NewUserInfoRepository(db DBTX) *UserInfoRepository {
	return &UserInfoRepository{db: db}
}

func (r *UserInfoRepository) Upsert(ctx context.Context, userID int64, payload onboarding.Payload) (*models.UserInfo, error) {
	query := `
		INSERT INTO user_infos (user_id, payload)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET payload = EXCLUDED.payload,
			updated_at = NOW()
		RETURNING id, user_id, payload, created_at, updated_at
	`
	var info models.UserInfo
	err := r.db.QueryRow(ctx, query, userID, payload).
		Scan(&info.ID, &info.UserID, &info.Payload, &info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *UserInfoRepository) GetByUserID(ctx context.Context, userID int64) (*models.UserInfo, error) {
	query := `
		SELECT id, user_id, payload, created_at, updated_at
		FROM user_infos
		WHERE user_id = $1
	`
	var info models.UserInfo
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&info.ID, &info.UserID, &info.Payload, &info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
