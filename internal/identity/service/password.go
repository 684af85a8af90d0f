package service

import (
	"fmt"
	"unicode"

	autherror "github.com/AnthoniusHendriyanto/identity-core/internal/errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is a slow, salted, one-way hash. Implementations never
// return or log the plaintext.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify compares in constant time; bcrypt embeds the per-call salt in the
// digest.
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// PasswordValidator is the pluggable strength policy. A rejection is a
// *autherror.WeakPasswordError carrying the reason.
type PasswordValidator interface {
	Validate(password string) error
}

type DefaultPasswordValidator struct {
	MinLength int
}

func NewDefaultPasswordValidator() *DefaultPasswordValidator {
	return &DefaultPasswordValidator{MinLength: 8}
}

func (v *DefaultPasswordValidator) Validate(password string) error {
	if len(password) < v.MinLength {
		return &autherror.WeakPasswordError{
			Reason: fmt.Sprintf("must be at least %d characters long", v.MinLength),
		}
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	switch {
	case !hasUpper:
		return &autherror.WeakPasswordError{Reason: "must contain an uppercase letter"}
	case !hasLower:
		return &autherror.WeakPasswordError{Reason: "must contain a lowercase letter"}
	case !hasDigit:
		return &autherror.WeakPasswordError{Reason: "must contain a digit"}
	}

	return nil
}
