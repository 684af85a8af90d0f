package service

import (
	"github.com/AnthoniusHendriyanto/identity-core/internal/identity/domain"
	"github.com/AnthoniusHendriyanto/identity-core/pkg/constant"
)

// RBACService answers authorization queries. Evaluation is pure and
// read-only; nothing is cached across requests, so role changes take effect
// on the next evaluation.
type RBACService struct {
	roleMatchPolicy string
}

// NewRBACService builds an evaluator. policy is constant.RoleMatchAny or
// constant.RoleMatchAll and governs RequireRoles; anything else falls back
// to ANY.
func NewRBACService(policy string) *RBACService {
	if policy != constant.RoleMatchAll {
		policy = constant.RoleMatchAny
	}
	return &RBACService{roleMatchPolicy: policy}
}

// EffectivePermissions is the union of permission identifiers across all of
// the user's roles.
func (s *RBACService) EffectivePermissions(user *domain.User) map[string]struct{} {
	perms := make(map[string]struct{})
	for _, role := range user.Roles {
		for _, p := range role.Permissions {
			perms[p] = struct{}{}
		}
	}
	return perms
}

// RequirePermissions reports whether every required permission is in the
// user's effective set.
func (s *RBACService) RequirePermissions(user *domain.User, required ...string) bool {
	effective := s.EffectivePermissions(user)
	for _, p := range required {
		if _, ok := effective[p]; !ok {
			return false
		}
	}
	return true
}

// RequireRoles reports whether the held roles satisfy the required names
// under the configured policy.
func (s *RBACService) RequireRoles(user *domain.User, required ...string) bool {
	return s.RolesSatisfy(user.RoleNames(), required...)
}

// RolesSatisfy is RequireRoles over a plain role-name slice, e.g. the names
// carried in access-token claims.
func (s *RBACService) RolesSatisfy(held []string, required ...string) bool {
	if len(required) == 0 {
		return true
	}

	heldSet := make(map[string]struct{}, len(held))
	for _, r := range held {
		heldSet[r] = struct{}{}
	}

	if s.roleMatchPolicy == constant.RoleMatchAll {
		for _, r := range required {
			if _, ok := heldSet[r]; !ok {
				return false
			}
		}
		return true
	}

	for _, r := range required {
		if _, ok := heldSet[r]; ok {
			return true
		}
	}
	return false
}
