package service_test

import (
	"context"
	"testing"

	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/service"
	"github.com/AnthoniusHendriyanto/identity-core/internal/mocks"
	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBootstrap(t *testing.T) (*service.Bootstrap, *mocks.MockUserRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockRepo := mocks.NewMockUserRepository(ctrl)
	return service.NewBootstrap(mockRepo, service.NewBcryptHasher()), mockRepo
}

func expectRoleReconciliation(mockRepo *mocks.MockUserRepository, adminRole *domain.Role) {
	mockRepo.EXPECT().FindOrCreateRole(gomock.Any(), constant.AdminRoleName,
		constant.AdminRoleDescription, constant.AdminPermissions).Return(adminRole, nil)
	mockRepo.EXPECT().FindOrCreateRole(gomock.Any(), constant.DefaultUserRoleName,
		constant.DefaultUserRoleDescription, constant.DefaultUserPermissions).
		Return(&domain.Role{ID: 1, Name: constant.DefaultUserRoleName}, nil)
}

func TestBootstrap_CreatesAdmin(t *testing.T) {
	b, mockRepo := newBootstrap(t)

	adminRole := &domain.Role{ID: 2, Name: constant.AdminRoleName, Permissions: constant.AdminPermissions}
	expectRoleReconciliation(mockRepo, adminRole)

	mockRepo.EXPECT().GetByEmail(gomock.Any(), "admin@example.com").Return(nil, nil)
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	mockRepo.EXPECT().AssignRole(gomock.Any(), gomock.Any(), adminRole.ID).Return(nil)

	admin, err := b.EnsureRolesAndAdmin(context.Background(), "admin@example.com", "admin", "AdminPass123")

	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
	assert.True(t, admin.Active)
	assert.True(t, admin.HasRole(constant.AdminRoleName))
	assert.NotEqual(t, "AdminPass123", admin.PasswordHash)
}

func TestBootstrap_PromotesExistingUser(t *testing.T) {
	b, mockRepo := newBootstrap(t)

	adminRole := &domain.Role{ID: 2, Name: constant.AdminRoleName}
	expectRoleReconciliation(mockRepo, adminRole)

	existing := &domain.User{
		ID:    "user-123",
		Email: "admin@example.com",
		Roles: []domain.Role{{ID: 1, Name: constant.DefaultUserRoleName}},
	}
	mockRepo.EXPECT().GetByEmail(gomock.Any(), existing.Email).Return(existing, nil)
	mockRepo.EXPECT().AssignRole(gomock.Any(), existing.ID, adminRole.ID).Return(nil)

	admin, err := b.EnsureRolesAndAdmin(context.Background(), existing.Email, "admin", "AdminPass123")

	require.NoError(t, err)
	assert.Equal(t, existing.ID, admin.ID)
	assert.True(t, admin.HasRole(constant.AdminRoleName))
}

func TestBootstrap_AlreadyReconciled(t *testing.T) {
	b, mockRepo := newBootstrap(t)

	adminRole := &domain.Role{ID: 2, Name: constant.AdminRoleName}
	expectRoleReconciliation(mockRepo, adminRole)

	existing := &domain.User{
		ID:    "user-123",
		Email: "admin@example.com",
		Roles: []domain.Role{{ID: 2, Name: constant.AdminRoleName}},
	}
	mockRepo.EXPECT().GetByEmail(gomock.Any(), existing.Email).Return(existing, nil)
	// No Create, no AssignRole: the run is a no-op.

	admin, err := b.EnsureRolesAndAdmin(context.Background(), existing.Email, "admin", "AdminPass123")

	require.NoError(t, err)
	assert.Equal(t, existing.ID, admin.ID)
}
