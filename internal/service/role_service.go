package service

import (
	"context"

	"fleetgate/internal/model"
	"fleetgate/internal/repository"
	"fleetgate/pkg/apperr"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"` // "resource:action" keys
}

type UpdateRoleRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateRolePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required"` // "resource:action" keys
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsSystem    bool     `json:"is_system"`
	Permissions []string `json:"permissions"`
	CreatedAt   string   `json:"created_at"`
}

type PermissionResponse struct {
	ID       string `json:"id"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
}

// RoleService manages roles and their permission assignments. Every
// mutation invalidates the RBAC permission cache.
type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, id string) error
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
	SeedDefaults(ctx context.Context) error
}

type roleService struct {
	roles     repository.RoleRepository
	txManager repository.TransactionManager
	rbac      RBACService
}

// NewRoleService returns a new instance of RoleService
func NewRoleService(roles repository.RoleRepository, txManager repository.TransactionManager, rbac RBACService) RoleService {
	return &roleService{roles: roles, txManager: txManager, rbac: rbac}
}

func toRoleResponse(role *model.Role) *RoleResponse {
	perms := make([]string, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		perms = append(perms, p.Key())
	}
	return &RoleResponse{
		ID:          role.ID.String(),
		Name:        role.Name,
		Description: role.Description,
		IsSystem:    role.IsSystem,
		Permissions: perms,
		CreatedAt:   role.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		res = append(res, *toRoleResponse(&roles[i]))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.ErrNotFound.WithMessage("role not found")
	}
	return toRoleResponse(role), nil
}

// resolvePermissionKeys maps "resource:action" keys to existing Permission
// rows; unknown keys are a validation error.
func (s *roleService) resolvePermissionKeys(ctx context.Context, keys []string) ([]model.Permission, error) {
	all, err := s.roles.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]model.Permission, len(all))
	for _, p := range all {
		byKey[p.Key()] = p
	}

	perms := make([]model.Permission, 0, len(keys))
	for _, k := range dedupe(keys) {
		p, ok := byKey[k]
		if !ok {
			return nil, apperr.ErrValidation.WithMessage("unknown permission '" + k + "'")
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest) (*RoleResponse, error) {
	if _, err := s.roles.GetByName(ctx, req.Name); err == nil {
		return nil, apperr.ErrConflict.WithMessage("role already exists")
	}

	role := &model.Role{
		Name:        req.Name,
		Description: req.Description,
		IsSystem:    false,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roles.Create(txCtx, role); err != nil {
			return err
		}
		if len(req.Permissions) > 0 {
			perms, err := s.resolvePermissionKeys(txCtx, req.Permissions)
			if err != nil {
				return err
			}
			if err := s.roles.ReplacePermissions(txCtx, role, perms); err != nil {
				return err
			}
			role.Permissions = perms
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.rbac.Invalidate()
	return toRoleResponse(role), nil
}

func (s *roleService) UpdateRole(ctx context.Context, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.ErrNotFound.WithMessage("role not found")
	}
	if role.IsSystem {
		return nil, apperr.ErrValidation.WithMessage("system roles cannot be renamed")
	}

	role.Name = req.Name
	role.Description = req.Description
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}

	s.rbac.Invalidate()
	return toRoleResponse(role), nil
}

func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return apperr.ErrNotFound.WithMessage("role not found")
	}
	if role.IsSystem {
		return apperr.ErrValidation.WithMessage("system roles cannot be deleted")
	}

	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}

	s.rbac.Invalidate()
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.roles.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, PermissionResponse{
			ID:       p.ID.String(),
			Resource: p.Resource,
			Action:   p.Action,
		})
	}
	return res, nil
}

func (s *roleService) UpdateRolePermissions(ctx context.Context, roleID string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, apperr.ErrNotFound.WithMessage("role not found")
	}

	perms, err := s.resolvePermissionKeys(ctx, req.Permissions)
	if err != nil {
		return nil, err
	}

	if err := s.roles.ReplacePermissions(ctx, role, perms); err != nil {
		return nil, err
	}
	role.Permissions = perms

	s.rbac.Invalidate()
	return toRoleResponse(role), nil
}

// Default permission matrix seeded at startup. Resources match the
// gateway route table plus this service's own admin surfaces.
var (
	seedResources = []string{"teams", "clients", "stores", "orders", "riders", "vehicles", "spare_parts", "users", "roles", "audit"}
	seedActions   = []string{"read", "create", "update", "delete"}
)

// SeedDefaults idempotently creates the permission matrix and the built-in
// roles. super_admin carries no explicit rows: it is an implicit allow in
// the evaluator.
func (s *roleService) SeedDefaults(ctx context.Context) error {
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.roles.ListPermissions(txCtx)
		if err != nil {
			return err
		}
		have := make(map[string]struct{}, len(existing))
		for _, p := range existing {
			have[p.Key()] = struct{}{}
		}

		for _, resource := range seedResources {
			for _, action := range seedActions {
				if _, ok := have[resource+":"+action]; ok {
					continue
				}
				if err := s.roles.CreatePermission(txCtx, &model.Permission{Resource: resource, Action: action}); err != nil {
					return err
				}
			}
		}

		all, err := s.roles.ListPermissions(txCtx)
		if err != nil {
			return err
		}

		readOnly := make([]model.Permission, 0, len(all))
		for _, p := range all {
			if p.Action == "read" {
				readOnly = append(readOnly, p)
			}
		}

		defaults := []struct {
			name        string
			description string
			perms       []model.Permission
		}{
			{model.RoleSuperAdmin, "Implicit allow on every permission check", nil},
			{model.RoleAdmin, "Full access to all resources, bypasses team scoping", all},
			{model.RoleDispatcher, "Read everything, manage orders, riders and vehicles", dispatcherPerms(all)},
			{model.RoleStaff, "Read-only access", readOnly},
		}

		for _, d := range defaults {
			if _, err := s.roles.GetByName(txCtx, d.name); err == nil {
				continue
			}
			role := &model.Role{Name: d.name, Description: d.description, IsSystem: true}
			if err := s.roles.Create(txCtx, role); err != nil {
				return err
			}
			if len(d.perms) > 0 {
				if err := s.roles.ReplacePermissions(txCtx, role, d.perms); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.rbac.Invalidate()
	return nil
}

func dispatcherPerms(all []model.Permission) []model.Permission {
	managed := map[string]struct{}{"orders": {}, "riders": {}, "vehicles": {}}
	perms := make([]model.Permission, 0, len(all))
	for _, p := range all {
		if _, ok := managed[p.Resource]; ok {
			perms = append(perms, p)
			continue
		}
		if p.Action == "read" {
			perms = append(perms, p)
		}
	}
	return perms
}
