package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/AnthoniusHendriyanto/identity-core/config"
	autherror "github.com/AnthoniusHendriyanto/identity-core/internal/errors"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
)

// ResetService handles the password-reset flow: issuing one-time tokens and
// completing the credential change with full session invalidation.
type ResetService struct {
	repo      domain.UserRepository
	hasher    PasswordHasher
	passwords PasswordValidator
	cfg       *config.Config
}

func NewResetService(repo domain.UserRepository, hasher PasswordHasher,
	passwords PasswordValidator, cfg *config.Config) *ResetService {
	return &ResetService{
		repo:      repo,
		hasher:    hasher,
		passwords: passwords,
		cfg:       cfg,
	}
}

// RequestReset stores a fresh one-time token and its expiry on the user and
// returns the token for out-of-band delivery. Unknown emails yield
// ErrUserNotFound; the dispatcher must not reveal that to callers.
func (s *ResetService) RequestReset(ctx context.Context, email string) (string, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil || !user.Active {
		return "", autherror.ErrUserNotFound
	}

	buf := make([]byte, constant.ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	expiresAt := time.Now().Add(time.Duration(s.cfg.ResetExpiryMin) * time.Minute)
	if err := s.repo.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return "", err
	}

	return token, nil
}

// CompleteReset validates the token, checks expiry, validates the new
// password's strength, and then commits the replace-hash / clear-token /
// revoke-all-sessions cascade as one atomic unit.
func (s *ResetService) CompleteReset(ctx context.Context, token, newPassword string) error {
	user, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		return err
	}
	if user == nil {
		return autherror.ErrResetTokenInvalid
	}

	if user.PasswordResetExpiresAt == nil || user.PasswordResetExpiresAt.Before(time.Now()) {
		return autherror.ErrResetTokenExpired
	}

	if err := s.passwords.Validate(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	return s.repo.CompletePasswordReset(ctx, user.ID, hash)
}
