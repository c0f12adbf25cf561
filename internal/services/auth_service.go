package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/FitOnboardBack/internal/models"
	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
	"github.com/saeid-a/FitOnboardBack/internal/repository"
	"github.com/saeid-a/FitOnboardBack/pkg/utils"
	"go.uber.org/zap"
)

const (
	MessageNeedsOnboarding = "needs onboarding"
	MessageLoginSuccessful = "login successful"

	defaultRole = "user"
)

type socialUserStore interface {
	UpsertSocial(ctx context.Context, input repository.SocialLoginInput) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type userInfoReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.UserInfo, error)
}

type identityAttacher interface {
	AttachIdentity(ctx context.Context, userID int64, user onboarding.User, needsOnboarding bool) (*WizardView, error)
	Reset(ctx context.Context, userID int64) (*WizardView, error)
}

type AuthService struct {
	userRepo     socialUserStore
	userInfoRepo userInfoReader
	wizard       identityAttacher
	jwtSecret    string
	log          *zap.Logger
}

func NewAuthService(
	userRepo socialUserStore,
	userInfoRepo userInfoReader,
	wizard identityAttacher,
	jwtSecret string,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		userRepo:     userRepo,
		userInfoRepo: userInfoRepo,
		wizard:       wizard,
		jwtSecret:    jwtSecret,
		log:          log,
	}
}

type SocialLoginInput struct {
	Email          string
	Username       string
	Platform       string
	ExternalUserID string
}

type LoginResult struct {
	Success         bool         `json:"success"`
	Message         string       `json:"message"`
	UserID          int64        `json:"userId"`
	Token           string       `json:"token"`
	NeedsOnboarding bool         `json:"needsOnboarding"`
	User            *models.User `json:"user"`
}

type Profile struct {
	User            *models.User `json:"user"`
	NeedsOnboarding bool         `json:"needsOnboarding"`
	UserInfoID      *int64       `json:"userInfoId"`
}

func (s *AuthService) lookupUserInfo(ctx context.Context, userID int64) (*models.UserInfo, error) {
	info, err := s.userInfoRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return info, nil
}

// SocialLogin creates or refreshes the user, issues a token and echoes the
// identity into the wizard record.
func (s *AuthService) SocialLogin(ctx context.Context, input SocialLoginInput) (*LoginResult, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	if input.Username == "" {
		input.Username, _, _ = strings.Cut(input.Email, "@")
	}

	var externalID *string
	if trimmed := strings.TrimSpace(input.ExternalUserID); trimmed != "" {
		externalID = &trimmed
	}

	user, err := s.userRepo.UpsertSocial(ctx, repository.SocialLoginInput{
		Email:          input.Email,
		Username:       input.Username,
		Platform:       input.Platform,
		ExternalUserID: externalID,
	})
	if err != nil {
		return nil, err
	}

	info, err := s.lookupUserInfo(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	needsOnboarding := info == nil

	identity := onboarding.User{
		Email:    user.Email,
		Username: user.Username,
		Platform: user.Platform,
	}
	if info != nil {
		identity.UserInfoID = strconv.FormatInt(info.ID, 10)
	}
	if _, err := s.wizard.AttachIdentity(ctx, user.ID, identity, needsOnboarding); err != nil {
		return nil, err
	}

	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), defaultRole, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	message := MessageLoginSuccessful
	if needsOnboarding {
		message = MessageNeedsOnboarding
	}
	s.log.Info("social login", zap.Int64("user_id", user.ID), zap.String("platform", user.Platform), zap.Bool("needs_onboarding", needsOnboarding))

	return &LoginResult{
		Success:         true,
		Message:         message,
		UserID:          user.ID,
		Token:           token,
		NeedsOnboarding: needsOnboarding,
		User:            user,
	}, nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	info, err := s.lookupUserInfo(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: user, NeedsOnboarding: info == nil}
	if info != nil {
		profile.UserInfoID = &info.ID
	}
	return profile, nil
}

func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	_, err := s.wizard.Reset(ctx, userID)
	return err
}
