package service

import (
	"context"
	"log"
	"time"

	"github.com/AnthoniusHendriyanto/identity-core/config"
	autherror "github.com/AnthoniusHendriyanto/identity-core/internal/errors"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/dto"
)

// RefreshService rotates refresh tokens: a presented token is good for
// exactly one rotation, after which its stored record is revoked. A revoked
// record being presented again is the replay signal.
type RefreshService struct {
	repo   domain.UserRepository
	tokens TokenGenerator
	users  *UserService
	cfg    *config.Config
}

func NewRefreshService(repo domain.UserRepository, tokens TokenGenerator,
	users *UserService, cfg *config.Config) *RefreshService {
	return &RefreshService{
		repo:   repo,
		tokens: tokens,
		users:  users,
		cfg:    cfg,
	}
}

// Rotate exchanges a valid refresh token for a new access+refresh pair. The
// old record is revoked strictly before the new pair exists, so there is no
// window with two live refresh anchors for the same session.
func (s *RefreshService) Rotate(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	user, _, err := s.consume(ctx, input.RefreshToken)
	if err != nil {
		return nil, err
	}

	return s.users.issueSession(ctx, user, input.UserAgent, input.IPAddress)
}

// consume validates the presented token against its stored record and
// retires the record. It returns the owning user and the retired jti.
func (s *RefreshService) consume(ctx context.Context, presented string) (*domain.User, string, error) {
	claims, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		return nil, "", autherror.ErrRefreshTokenInvalid
	}

	record, err := s.repo.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return nil, "", err
	}
	if record == nil {
		return nil, "", autherror.ErrRefreshTokenNotFound
	}

	if record.Revoked {
		// Replay: this token was already rotated out. Someone is holding a
		// stolen copy, or the legitimate client retried; either way the
		// hardened response is to drop every session the user has.
		if s.cfg.RevokeOnReuse {
			if err := s.repo.RevokeAllRefreshTokensByUserID(ctx, record.UserID); err != nil {
				log.Printf("warn: failed to revoke sessions after token reuse for user %s: %v", record.UserID, err)
			}
		}
		return nil, "", autherror.ErrRefreshTokenRevoked
	}

	if time.Now().After(record.ExpiresAt) {
		return nil, "", autherror.ErrRefreshTokenExpired
	}

	// Conditional update on the revoked flag; of two concurrent rotations
	// of the same jti, exactly one sees a row flipped.
	won, err := s.repo.RevokeRefreshToken(ctx, record.ID)
	if err != nil {
		return nil, "", err
	}
	if !won {
		return nil, "", autherror.ErrRefreshTokenRevoked
	}

	user, err := s.repo.GetByID(ctx, record.UserID)
	if err != nil {
		return nil, "", err
	}
	if user == nil || !user.Active {
		return nil, "", autherror.ErrRefreshTokenInvalid
	}

	return user, record.ID, nil
}
