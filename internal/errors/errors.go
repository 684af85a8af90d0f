package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailAlreadyInUse    = errors.New("email already in use")
	ErrUsernameAlreadyInUse = errors.New("username already in use")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserInactive         = errors.New("user account is inactive")

	ErrRefreshTokenInvalid  = errors.New("refresh token invalid")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenRevoked  = errors.New("refresh token revoked")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")

	ErrResetTokenInvalid = errors.New("reset token invalid")
	ErrResetTokenExpired = errors.New("reset token has expired")

	ErrTokenSigning = errors.New("token signing failed")
)

// WeakPasswordError is returned by password strength validators. Reason is
// safe to surface to the caller.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("weak password: %s", e.Reason)
}

// IsWeakPassword reports whether err is a WeakPasswordError and returns it.
func IsWeakPassword(err error) (*WeakPasswordError, bool) {
	var wpe *WeakPasswordError
	if errors.As(err, &wpe) {
		return wpe, true
	}
	return nil, false
}

// IsTokenRejection reports whether err is one of the refresh-token rejection
// reasons. Handlers surface all of them with the same generic message.
func IsTokenRejection(err error) bool {
	return errors.Is(err, ErrRefreshTokenInvalid) ||
		errors.Is(err, ErrRefreshTokenNotFound) ||
		errors.Is(err, ErrRefreshTokenRevoked) ||
		errors.Is(err, ErrRefreshTokenExpired)
}
