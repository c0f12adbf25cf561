package models

import (
	"time"

	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
)

type UserInfo struct {
	ID        int64              `json:"id"`
	UserID    int64              `json:"user_id"`
	Payload   onboarding.Payload `json:"payload"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
