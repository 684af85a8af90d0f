package service

import (
	"context"
	"time"

	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
	"github.com/google/uuid"
)

// Bootstrap reconciles the baseline roles and the admin account against the
// store. Every step is idempotent, so it is safe to run on each deploy.
type Bootstrap struct {
	repo   domain.UserRepository
	hasher PasswordHasher
}

func NewBootstrap(repo domain.UserRepository, hasher PasswordHasher) *Bootstrap {
	return &Bootstrap{repo: repo, hasher: hasher}
}

// EnsureRolesAndAdmin creates the "admin" and "user" roles if absent and
// guarantees an admin user holding the admin role exists. An existing user
// with the given email is promoted rather than recreated.
func (b *Bootstrap) EnsureRolesAndAdmin(ctx context.Context, email, username, password string) (*domain.User, error) {
	adminRole, err := b.repo.FindOrCreateRole(ctx, constant.AdminRoleName,
		constant.AdminRoleDescription, constant.AdminPermissions)
	if err != nil {
		return nil, err
	}

	if _, err := b.repo.FindOrCreateRole(ctx, constant.DefaultUserRoleName,
		constant.DefaultUserRoleDescription, constant.DefaultUserPermissions); err != nil {
		return nil, err
	}

	existing, err := b.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.HasRole(constant.AdminRoleName) {
			if err := b.repo.AssignRole(ctx, existing.ID, adminRole.ID); err != nil {
				return nil, err
			}
			existing.Roles = append(existing.Roles, *adminRole)
		}
		return existing, nil
	}

	hash, err := b.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	admin := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := b.repo.Create(ctx, admin); err != nil {
		return nil, err
	}
	if err := b.repo.AssignRole(ctx, admin.ID, adminRole.ID); err != nil {
		return nil, err
	}
	admin.Roles = []domain.Role{*adminRole}

	return admin, nil
}
