package service

//go:generate mockgen -destination=../../mocks/mock_user_repository.go -package=mocks github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain UserRepository

import (
	"context"
	"log"
	"time"

	"github.com/AnthoniusHendriyanto/identity-core/config"
	autherror "github.com/AnthoniusHendriyanto/identity-core/internal/errors"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/dto"
	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
	"github.com/google/uuid"
)

type UserService struct {
	repo      domain.UserRepository
	tokens    TokenGenerator
	hasher    PasswordHasher
	passwords PasswordValidator
	cfg       *config.Config
}

func NewUserService(repo domain.UserRepository, tokens TokenGenerator, hasher PasswordHasher,
	passwords PasswordValidator, cfg *config.Config) *UserService {
	return &UserService{
		repo:      repo,
		tokens:    tokens,
		hasher:    hasher,
		passwords: passwords,
		cfg:       cfg,
	}
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*domain.User, error) {
	existing, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	existing, err = s.repo.GetByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrUsernameAlreadyInUse
	}

	if err := s.passwords.Validate(input.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	role, err := s.repo.FindOrCreateRole(ctx, constant.DefaultUserRoleName,
		constant.DefaultUserRoleDescription, constant.DefaultUserPermissions)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AssignRole(ctx, user.ID, role.ID); err != nil {
		return nil, err
	}
	user.Roles = []domain.Role{*role}

	return user, nil
}

// Login authenticates the user and issues a token pair. Every rejection
// path returns ErrInvalidCredentials so callers cannot distinguish unknown
// accounts from wrong passwords.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}

	if user == nil || !user.Active || !s.hasher.Verify(input.Password, user.PasswordHash) {
		if err := s.repo.RecordLoginAttempt(ctx, input.Email, input.IPAddress, false); err != nil {
			log.Printf("warn: failed to record login attempt for %s: %v", input.Email, err)
		}
		return nil, autherror.ErrInvalidCredentials
	}

	tokens, err := s.issueSession(ctx, user, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	if err := s.repo.RecordLoginAttempt(ctx, input.Email, input.IPAddress, true); err != nil {
		log.Printf("warn: failed to record login attempt for %s: %v", input.Email, err)
	}

	return tokens, nil
}

// issueSession mints a pair, persists the refresh record, trims the session
// count to the configured cap and updates the last-login timestamp. Shared
// by Login and RefreshService.Rotate.
func (s *UserService) issueSession(ctx context.Context, user *domain.User, userAgent, ip string) (*dto.TokenResponse, error) {
	accessToken, refreshToken, jti, refreshExpiresAt, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	record := &domain.RefreshTokenRecord{
		ID:        jti,
		UserID:    user.ID,
		UserAgent: userAgent,
		IPAddress: ip,
		ExpiresAt: refreshExpiresAt,
		CreatedAt: time.Now(),
		Revoked:   false,
	}
	if err := s.repo.StoreRefreshToken(ctx, record); err != nil {
		return nil, err
	}

	if s.cfg.MaxActiveTokens > 0 {
		count, err := s.repo.GetActiveCountByUserID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if count > s.cfg.MaxActiveTokens {
			if err := s.repo.DeleteOldestByUserID(ctx, user.ID); err != nil {
				log.Printf("warn: failed to delete oldest refresh token for user %s: %v", user.ID, err)
			}
		}
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		log.Printf("warn: failed to update last login for user %s: %v", user.ID, err)
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Logout revokes the refresh record behind the presented token.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return autherror.ErrRefreshTokenInvalid
	}

	revoked, err := s.repo.RevokeRefreshToken(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !revoked {
		return autherror.ErrRefreshTokenRevoked
	}
	return nil
}

// ForceLogout revokes every refresh record the user owns.
func (s *UserService) ForceLogout(ctx context.Context, userID string) error {
	return s.repo.RevokeAllRefreshTokensByUserID(ctx, userID)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetUserSessions(ctx context.Context, userID string) ([]dto.SessionOutput, error) {
	records, err := s.repo.GetActiveSessionsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions := make([]dto.SessionOutput, 0, len(records))
	for _, rt := range records {
		sessions = append(sessions, dto.SessionOutput{
			ID:        rt.ID,
			IPAddress: rt.IPAddress,
			UserAgent: rt.UserAgent,
			CreatedAt: rt.CreatedAt,
			ExpiresAt: rt.ExpiresAt,
		})
	}
	return sessions, nil
}
