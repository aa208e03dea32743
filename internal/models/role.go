package models

import "time"

const (
	RolePrefix       = "role_"
	PermissionPrefix = "perm_"

	// GuardWeb is the only guard the application defines.
	GuardWeb = "web"

	// ModelTypeUser tags user rows in model_has_roles and
	// model_has_permissions.
	ModelTypeUser = "user"
)

// Global role names created by the permission seeder.
const (
	RoleSuperAdmin     = "Super Admin"
	RoleProjectManager = "Project Manager"
	RoleStaff          = "Staff"
	RoleCustomer       = "Customer"
)

// Role applies to TeamID only, or to every team when TeamID is nil.
type Role struct {
	ID        int64     `json:"-"`
	TeamID    *int64    `json:"-"`
	Name      string    `json:"name"`
	GuardName string    `json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Role) IsGlobal() bool {
	return r.TeamID == nil
}

type Permission struct {
	ID        int64     `json:"-"`
	TeamID    *int64    `json:"-"`
	Name      string    `json:"name"`
	GuardName string    `json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
