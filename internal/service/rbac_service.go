package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fleetgate/internal/model"
	"fleetgate/internal/repository"
	"fleetgate/pkg/apperr"
)

// permCacheTTL bounds how long a stale permission union can outlive a
// role/permission mutation in another process. Mutations in this process
// invalidate the cache immediately.
const permCacheTTL = 10 * time.Second

type permCacheEntry struct {
	keys      map[string]struct{}
	expiresAt time.Time
}

// RBACService evaluates whether a subject may perform an action on a
// resource. The model is strictly additive: allow iff some held role
// grants the exact (resource, action) pair, or the subject holds the
// super-bypass role.
type RBACService interface {
	Authorize(ctx context.Context, subject *Subject, resource, action string) error
	EffectivePermissions(ctx context.Context, roleNames []string) ([]string, error)
	Invalidate()
}

type rbacService struct {
	roles repository.RoleRepository
	cache sync.Map // role-set key -> permCacheEntry
}

// NewRBACService returns a new instance of RBACService
func NewRBACService(roles repository.RoleRepository) RBACService {
	return &rbacService{roles: roles}
}

func (s *rbacService) Authorize(ctx context.Context, subject *Subject, resource, action string) error {
	if subject == nil {
		return apperr.ErrInsufficientPerms
	}
	if subject.HasRole(model.RoleSuperAdmin) {
		return nil
	}

	perms, err := s.permissionUnion(ctx, subject.Roles)
	if err != nil {
		return err
	}
	if _, ok := perms[resource+":"+action]; !ok {
		return apperr.ErrInsufficientPerms.WithMessage("missing permission '" + resource + ":" + action + "'")
	}
	return nil
}

// EffectivePermissions returns the sorted union of permission keys granted
// to the named roles, e.g. for the /me endpoint.
func (s *rbacService) EffectivePermissions(ctx context.Context, roleNames []string) ([]string, error) {
	perms, err := s.permissionUnion(ctx, roleNames)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(perms))
	for k := range perms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Invalidate drops every cached permission union. Called by RoleService
// after any role or permission mutation.
func (s *rbacService) Invalidate() {
	s.cache.Range(func(key, _ interface{}) bool {
		s.cache.Delete(key)
		return true
	})
}

func (s *rbacService) permissionUnion(ctx context.Context, roleNames []string) (map[string]struct{}, error) {
	if len(roleNames) == 0 {
		return map[string]struct{}{}, nil
	}

	key := cacheKey(roleNames)
	if entry, ok := s.cache.Load(key); ok {
		cached := entry.(permCacheEntry)
		if time.Now().Before(cached.expiresAt) {
			return cached.keys, nil
		}
	}

	perms, err := s.roles.PermissionsForRoles(ctx, roleNames)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		keys[p.Key()] = struct{}{}
	}

	s.cache.Store(key, permCacheEntry{keys: keys, expiresAt: time.Now().Add(permCacheTTL)})
	return keys, nil
}

func cacheKey(roleNames []string) string {
	sorted := make([]string, len(roleNames))
	copy(sorted, roleNames)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
