package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByResetToken(ctx context.Context, token string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// CompletePasswordReset replaces the password hash, clears the reset
	// token and its expiry, and revokes every refresh record the user owns,
	// all in a single transaction.
	CompletePasswordReset(ctx context.Context, userID, newHash string) error

	StoreRefreshToken(ctx context.Context, record *RefreshTokenRecord) error
	GetRefreshToken(ctx context.Context, jti string) (*RefreshTokenRecord, error)
	// RevokeRefreshToken flips the revoked flag only if it is still false.
	// It returns false when the record was already revoked or does not
	// exist, which is how concurrent rotations of the same jti are decided.
	RevokeRefreshToken(ctx context.Context, jti string) (bool, error)
	RevokeAllRefreshTokensByUserID(ctx context.Context, userID string) error
	GetActiveSessionsByUserID(ctx context.Context, userID string) ([]RefreshTokenRecord, error)
	GetActiveCountByUserID(ctx context.Context, userID string) (int, error)
	DeleteOldestByUserID(ctx context.Context, userID string) error

	RecordLoginAttempt(ctx context.Context, email, ip string, success bool) error

	FindOrCreateRole(ctx context.Context, name, description string, permissions []string) (*Role, error)
	AssignRole(ctx context.Context, userID string, roleID int) error
}
