package model

import (
	"time"

	"github.com/google/uuid"
)

// Well-known role names. SuperAdmin bypasses every permission check;
// Admin additionally bypasses team scoping.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
	RoleStaff      = "staff"
)

// Role represents a named set of permissions assignable to users
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"` // Prevent deletion of built-in roles
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission is a single (resource, action) grant, unique per pair
type Permission struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Resource string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_permissions_resource_action" json:"resource"` // e.g. "vehicles"
	Action   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_permissions_resource_action" json:"action"`    // read, create, update, delete
}

// Key returns the canonical "resource:action" form used by the evaluator.
func (p Permission) Key() string {
	return p.Resource + ":" + p.Action
}
