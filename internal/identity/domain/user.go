package domain

import "time"

type User struct {
	ID                     string
	Email                  string
	Username               string
	PasswordHash           string
	Active                 bool
	PasswordResetToken     *string
	PasswordResetExpiresAt *time.Time
	LastLoginAt            *time.Time
	Roles                  []Role
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// RoleNames returns the names of all roles assigned to the user.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

type Role struct {
	ID          int
	Name        string
	Description string
	Permissions []string
}

// RefreshTokenRecord is the stored state of an issued refresh token. The ID
// is the jti embedded in the token. Records are immutable except for the
// Revoked flag, which only ever transitions false to true.
type RefreshTokenRecord struct {
	ID        string
	UserID    string
	UserAgent string
	IPAddress string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

type LoginAttempt struct {
	ID          string
	Email       string
	IPAddress   string
	AttemptTime time.Time
	Successful  bool
}
