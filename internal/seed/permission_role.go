package seed

import (
	"context"

	"github.com/dimitrije/teamscope/internal/database"
	"github.com/dimitrije/teamscope/internal/models"
	"github.com/dimitrije/teamscope/internal/rbac"
	"go.uber.org/zap"
)

type permissionGroup struct {
	parent   string
	children []string
}

// taxonomy lists every permission. Granting a parent to a role grants
// its children too.
var taxonomy = []permissionGroup{
	{"super admin", []string{"force delete"}},
	{"manage users", []string{"create users", "read users", "update users", "delete users"}},
	{"manage own teams", []string{"create own teams", "read own teams", "update own teams", "delete own teams"}},
	{"manage all teams", []string{"read all teams", "update all teams", "delete all teams"}},
	{"manage own requirements", []string{"create own requirements", "read own requirements", "update own requirements", "delete own requirements"}},
	{"manage all requirements", []string{"read all requirements", "update all requirements", "delete all requirements"}},
	{"manage own projects", []string{"create own projects", "read own projects", "update own projects", "delete own projects"}},
	{"manage all projects", []string{"read all projects", "update all projects", "delete all projects"}},
}

type roleDefinition struct {
	name   string
	grants []string
}

var roleDefinitions = []roleDefinition{
	{models.RoleProjectManager, []string{"manage own teams", "manage own requirements", "manage own projects"}},
	{models.RoleStaff, []string{"read users", "manage own requirements"}},
	{models.RoleCustomer, []string{"manage own requirements", "read all requirements"}},
}

// PermissionNames returns every permission in taxonomy order.
func PermissionNames() []string {
	var names []string
	for _, g := range taxonomy {
		names = append(names, g.parent)
		names = append(names, g.children...)
	}
	return names
}

func dependents(name string) []string {
	for _, g := range taxonomy {
		if g.parent == name {
			return g.children
		}
	}
	return nil
}

// expandGrants appends the children of every parent in grants, keeping
// first-seen order and dropping duplicates.
func expandGrants(grants []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, g := range grants {
		add(g)
		for _, child := range dependents(g) {
			add(child)
		}
	}
	return out
}

// PermissionRoleSeeder creates the permissions, the global Super Admin
// role (which holds no grants) and the three working roles.
type PermissionRoleSeeder struct {
	db     *database.DB
	store  *rbac.Store
	logger *zap.Logger
}

func NewPermissionRoleSeeder(db *database.DB, store *rbac.Store, logger *zap.Logger) *PermissionRoleSeeder {
	return &PermissionRoleSeeder{db: db, store: store, logger: logger}
}

func (s *PermissionRoleSeeder) Name() string { return "permissions" }

func (s *PermissionRoleSeeder) Run(ctx context.Context) error {
	s.store.ForgetCachedPermissions(ctx)

	return s.db.WithTx(ctx, func(q database.Querier) error {
		store := s.store.WithTx(q)

		for _, name := range PermissionNames() {
			if _, err := store.CreatePermission(ctx, name); err != nil {
				return err
			}
		}

		if _, err := store.CreateRole(ctx, models.RoleSuperAdmin, nil); err != nil {
			return err
		}

		for _, def := range roleDefinitions {
			role, err := store.CreateRole(ctx, def.name, nil)
			if err != nil {
				return err
			}
			perms := expandGrants(def.grants)
			if err := store.GivePermissionTo(ctx, role.ID, perms...); err != nil {
				return err
			}
			s.logger.Info("role created",
				zap.String("role", def.name),
				zap.Int("permissions", len(perms)),
			)
		}
		return nil
	})
}
