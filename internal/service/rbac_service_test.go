package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"fleetgate/internal/model"
	"fleetgate/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeRoleRepo serves permissions out of a mutable role -> keys map.
type fakeRoleRepo struct {
	mu    sync.Mutex
	grant map[string][]string // role name -> "resource:action" keys
	calls int
}

func newFakeRoleRepo(grant map[string][]string) *fakeRoleRepo {
	return &fakeRoleRepo{grant: grant}
}

func (r *fakeRoleRepo) PermissionsForRoles(_ context.Context, roleNames []string) ([]model.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	seen := make(map[string]struct{})
	var out []model.Permission
	for _, name := range roleNames {
		for _, key := range r.grant[name] {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			resource, action, _ := cutPermKey(key)
			out = append(out, model.Permission{Resource: resource, Action: action})
		}
	}
	return out, nil
}

func cutPermKey(key string) (string, string, bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:], true
		}
	}
	return key, "", false
}

func (r *fakeRoleRepo) setGrant(role string, keys []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grant[role] = keys
}

func (r *fakeRoleRepo) Create(context.Context, *model.Role) error  { return nil }
func (r *fakeRoleRepo) Update(context.Context, *model.Role) error  { return nil }
func (r *fakeRoleRepo) Delete(context.Context, string) error       { return nil }
func (r *fakeRoleRepo) List(context.Context) ([]model.Role, error) { return nil, nil }
func (r *fakeRoleRepo) GetByID(context.Context, string) (*model.Role, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeRoleRepo) GetByName(context.Context, string) (*model.Role, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *fakeRoleRepo) GetByNames(context.Context, []string) ([]model.Role, error) {
	return nil, nil
}
func (r *fakeRoleRepo) CreatePermission(context.Context, *model.Permission) error { return nil }
func (r *fakeRoleRepo) ListPermissions(context.Context) ([]model.Permission, error) {
	return nil, nil
}
func (r *fakeRoleRepo) ReplacePermissions(context.Context, *model.Role, []model.Permission) error {
	return nil
}

func subjectWithRoles(roles ...string) *Subject {
	return &Subject{ID: uuid.New(), Email: "u@x.com", Roles: roles}
}

func TestAuthorizeUnionOfRoles(t *testing.T) {
	repo := newFakeRoleRepo(map[string][]string{
		"dispatcher": {"orders:create", "orders:read"},
		"staff":      {"orders:read", "riders:read"},
	})
	svc := NewRBACService(repo)

	cases := []struct {
		name     string
		roles    []string
		resource string
		action   string
		allowed  bool
	}{
		{"granted by first role", []string{"dispatcher", "staff"}, "orders", "create", true},
		{"granted by second role", []string{"dispatcher", "staff"}, "riders", "read", true},
		{"granted by both", []string{"dispatcher", "staff"}, "orders", "read", true},
		{"not granted by any", []string{"dispatcher", "staff"}, "riders", "delete", false},
		{"action is exact not hierarchical", []string{"staff"}, "orders", "update", false},
		{"resource is exact", []string{"dispatcher"}, "order", "read", false},
		{"no roles", nil, "orders", "read", false},
		{"unknown role", []string{"ghost"}, "orders", "read", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.Authorize(context.Background(), subjectWithRoles(tc.roles...), tc.resource, tc.action)
			if tc.allowed && err != nil {
				t.Fatalf("expected allow, got %v", err)
			}
			if !tc.allowed && !errors.Is(err, apperr.ErrInsufficientPerms) {
				t.Fatalf("expected ErrInsufficientPerms, got %v", err)
			}
		})
	}
}

func TestAuthorizeSuperAdminBypass(t *testing.T) {
	svc := NewRBACService(newFakeRoleRepo(map[string][]string{}))

	subject := subjectWithRoles(model.RoleSuperAdmin)
	if err := svc.Authorize(context.Background(), subject, "anything", "delete"); err != nil {
		t.Fatalf("super_admin must bypass permission lookup, got %v", err)
	}
}

func TestAuthorizeNilSubject(t *testing.T) {
	svc := NewRBACService(newFakeRoleRepo(map[string][]string{}))

	if err := svc.Authorize(context.Background(), nil, "orders", "read"); !errors.Is(err, apperr.ErrInsufficientPerms) {
		t.Fatalf("expected ErrInsufficientPerms for nil subject, got %v", err)
	}
}

// Randomized cross-check: the decision must equal direct membership of
// resource:action in the union of the subject's role grants.
func TestAuthorizeMatchesUnionModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	resources := []string{"teams", "orders", "riders", "vehicles", "users"}
	actions := []string{"read", "create", "update", "delete"}

	grant := make(map[string][]string)
	for i := 0; i < 6; i++ {
		role := fmt.Sprintf("role%d", i)
		for _, res := range resources {
			for _, act := range actions {
				if rng.Intn(4) == 0 {
					grant[role] = append(grant[role], res+":"+act)
				}
			}
		}
	}

	svc := NewRBACService(newFakeRoleRepo(grant))

	for trial := 0; trial < 100; trial++ {
		var roles []string
		expected := make(map[string]struct{})
		for role, keys := range grant {
			if rng.Intn(2) == 0 {
				continue
			}
			roles = append(roles, role)
			for _, k := range keys {
				expected[k] = struct{}{}
			}
		}
		subject := subjectWithRoles(roles...)

		for _, res := range resources {
			for _, act := range actions {
				_, want := expected[res+":"+act]
				err := svc.Authorize(context.Background(), subject, res, act)
				if want && err != nil {
					t.Fatalf("trial %d: roles %v should allow %s:%s, got %v", trial, roles, res, act, err)
				}
				if !want && err == nil {
					t.Fatalf("trial %d: roles %v should deny %s:%s", trial, roles, res, act)
				}
			}
		}
	}
}

func TestEffectivePermissionsSorted(t *testing.T) {
	repo := newFakeRoleRepo(map[string][]string{
		"staff":      {"riders:read", "orders:read"},
		"dispatcher": {"orders:create"},
	})
	svc := NewRBACService(repo)

	keys, err := svc.EffectivePermissions(context.Background(), []string{"staff", "dispatcher"})
	if err != nil {
		t.Fatalf("EffectivePermissions failed: %v", err)
	}
	if !sort.StringsAreSorted(keys) {
		t.Errorf("keys not sorted: %v", keys)
	}
	want := []string{"orders:create", "orders:read", "riders:read"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestAuthorizeCachesUnionUntilInvalidate(t *testing.T) {
	repo := newFakeRoleRepo(map[string][]string{
		"staff": {"orders:read"},
	})
	svc := NewRBACService(repo)
	subject := subjectWithRoles("staff")

	if err := svc.Authorize(context.Background(), subject, "orders", "read"); err != nil {
		t.Fatalf("first authorize failed: %v", err)
	}
	if err := svc.Authorize(context.Background(), subject, "orders", "read"); err != nil {
		t.Fatalf("second authorize failed: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("repo calls = %d, want 1 (second hit served from cache)", repo.calls)
	}

	// Revoking the grant takes effect immediately after Invalidate.
	repo.setGrant("staff", nil)
	if err := svc.Authorize(context.Background(), subject, "orders", "read"); err != nil {
		t.Fatal("stale cache expected to still allow before invalidation")
	}

	svc.Invalidate()
	if err := svc.Authorize(context.Background(), subject, "orders", "read"); !errors.Is(err, apperr.ErrInsufficientPerms) {
		t.Fatalf("expected denial after invalidation, got %v", err)
	}
}

// Same role set in different order must share one cache entry.
func TestAuthorizeCacheKeyOrderIndependent(t *testing.T) {
	repo := newFakeRoleRepo(map[string][]string{
		"a": {"orders:read"},
		"b": {"riders:read"},
	})
	svc := NewRBACService(repo)

	if err := svc.Authorize(context.Background(), subjectWithRoles("a", "b"), "orders", "read"); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if err := svc.Authorize(context.Background(), subjectWithRoles("b", "a"), "riders", "read"); err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if repo.calls != 1 {
		t.Fatalf("repo calls = %d, want 1", repo.calls)
	}
}
