package service

import (
	"testing"

	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
	"github.com/stretchr/testify/assert"
)

func rbacUser() *domain.User {
	return &domain.User{
		ID: "user-123",
		Roles: []domain.Role{
			{ID: 1, Name: "user", Permissions: []string{"read_self"}},
			{ID: 2, Name: "admin", Permissions: []string{"read_self", "manage_roles"}},
		},
	}
}

func TestRBACService_EffectivePermissions(t *testing.T) {
	s := NewRBACService(constant.RoleMatchAny)

	// Union across both roles, duplicates collapsed.
	perms := s.EffectivePermissions(rbacUser())
	assert.Len(t, perms, 2)
	assert.Contains(t, perms, "read_self")
	assert.Contains(t, perms, "manage_roles")

	assert.Empty(t, s.EffectivePermissions(&domain.User{}))
}

func TestRBACService_RequirePermissions(t *testing.T) {
	s := NewRBACService(constant.RoleMatchAny)
	user := rbacUser()

	tests := []struct {
		name     string
		required []string
		want     bool
	}{
		{name: "single held permission", required: []string{"read_self"}, want: true},
		{name: "all held permissions", required: []string{"read_self", "manage_roles"}, want: true},
		{name: "one missing fails", required: []string{"read_self", "delete_user"}, want: false},
		{name: "unknown permission fails", required: []string{"p1", "p2"}, want: false},
		{name: "no requirements passes", required: nil, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.RequirePermissions(user, tt.required...))
		})
	}
}

func TestRBACService_RequireRoles(t *testing.T) {
	user := rbacUser()

	t.Run("any policy", func(t *testing.T) {
		s := NewRBACService(constant.RoleMatchAny)

		assert.True(t, s.RequireRoles(user, "admin"))
		assert.True(t, s.RequireRoles(user, "admin", "auditor"))
		assert.False(t, s.RequireRoles(user, "auditor"))
		assert.True(t, s.RequireRoles(user))
	})

	t.Run("all policy", func(t *testing.T) {
		s := NewRBACService(constant.RoleMatchAll)

		assert.True(t, s.RequireRoles(user, "admin"))
		assert.True(t, s.RequireRoles(user, "admin", "user"))
		assert.False(t, s.RequireRoles(user, "admin", "auditor"))
	})

	t.Run("unknown policy falls back to any", func(t *testing.T) {
		s := NewRBACService("sometimes")

		assert.True(t, s.RequireRoles(user, "admin", "auditor"))
	})
}

func TestRBACService_RolesSatisfy(t *testing.T) {
	s := NewRBACService(constant.RoleMatchAny)

	assert.True(t, s.RolesSatisfy([]string{"user"}, "user", "admin"))
	assert.False(t, s.RolesSatisfy([]string{"user"}, "admin"))
	assert.False(t, s.RolesSatisfy(nil, "admin"))
}
